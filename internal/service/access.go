package service

import (
	"contest_leaderboard/internal/model"
	"contest_leaderboard/internal/util"
	"fmt"
)

func requireAdmin(actor *model.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: %w: admin role required", util.ErrPreconditionFailed, util.ErrPermissionDenied)
	}
	return nil
}
