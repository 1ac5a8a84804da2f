package service

import (
	"contest_leaderboard/internal/model"
	"contest_leaderboard/internal/util"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type contestFixture struct {
	svc      *ContestService
	store    *memStatusStore
	teams    *fakeTeams
	source   *fakeSource
	sync     *ScoreboardSync
	feed     *recordingFeed
	notifier *recordingNotifier
}

func newContestFixture() *contestFixture {
	f := &contestFixture{
		store:    &memStatusStore{},
		teams:    &fakeTeams{},
		source:   &fakeSource{teams: sampleTeams()},
		feed:     &recordingFeed{},
		notifier: &recordingNotifier{},
	}
	f.sync, _ = newTestSync(f.source)
	f.svc = NewContestService(f.store, model.ContestNotStarted, f.teams, f.sync, f.feed, f.notifier)
	return f
}

func TestContestStatusDefaultsToInitial(t *testing.T) {
	f := newContestFixture()

	status, err := f.svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ContestNotStarted, status)

	f.store.status = "garbage"
	status, err = f.svc.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.ContestNotStarted, status)
}

func TestSetStatus(t *testing.T) {
	f := newContestFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.SetStatus(ctx, admin, model.ContestFinished))
	status, _ := f.svc.Status(ctx)
	assert.Equal(t, model.ContestFinished, status)
	assert.Equal(t, []NotificationLevel{LevelInfo}, f.notifier.levels())

	err := f.svc.SetStatus(ctx, admin, "Paused")
	assert.True(t, errors.Is(err, util.ErrMalformedInput))

	err = f.svc.SetStatus(ctx, contestant, model.ContestLive)
	assert.True(t, errors.Is(err, util.ErrPermissionDenied))
	status, _ = f.svc.Status(ctx)
	assert.Equal(t, model.ContestFinished, status)
}

func TestResetReopensAndRefreshes(t *testing.T) {
	f := newContestFixture()
	f.store.status = model.ContestFinished

	require.NoError(t, f.svc.Reset(context.Background(), admin))

	status, _ := f.svc.Status(context.Background())
	assert.Equal(t, model.ContestLive, status)
	boardCalls, _ := f.source.calls()
	assert.Equal(t, 1, boardCalls)
	assert.Equal(t, uint64(1), f.sync.Snapshot().Version)
}

func TestDeleteTeam(t *testing.T) {
	f := newContestFixture()
	ctx := context.Background()

	require.NoError(t, f.svc.DeleteTeam(ctx, admin, "team-a"))
	assert.Equal(t, []string{"team-a"}, f.teams.deleted)
	require.Len(t, f.feed.events, 1)
	assert.Equal(t, model.TableTeams, f.feed.events[0].Table)
	assert.Equal(t, model.ChangeDelete, f.feed.events[0].Kind)

	f.teams.err = gorm.ErrRecordNotFound
	assert.Equal(t, util.ErrTeamNotFound, f.svc.DeleteTeam(ctx, admin, "team-x"))

	err := f.svc.DeleteTeam(ctx, contestant, "team-a")
	assert.True(t, errors.Is(err, util.ErrPermissionDenied))
}

func TestUpdateTeamRenamesAndReranks(t *testing.T) {
	f := newContestFixture()
	ctx := context.Background()
	require.NoError(t, f.sync.RefreshScoreboard(ctx))

	team, err := f.svc.UpdateTeam(ctx, admin, "b", "  Renamed  ")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", team.Name)
	assert.Equal(t, map[string]string{"b": "Renamed"}, f.teams.renamed)

	snap := f.sync.Snapshot()
	assert.Equal(t, uint64(2), snap.Version)
	for _, tm := range snap.Teams {
		if tm.ID == "b" {
			assert.Equal(t, "Renamed", tm.Name)
			assert.NotZero(t, tm.Rank)
		}
	}

	require.Len(t, f.feed.events, 1)
	assert.Equal(t, model.TableTeams, f.feed.events[0].Table)
	assert.Equal(t, model.ChangeUpdate, f.feed.events[0].Kind)
	assert.Equal(t, "Renamed", f.feed.events[0].Record["name"])
}

func TestUpdateTeamFailures(t *testing.T) {
	f := newContestFixture()
	ctx := context.Background()
	require.NoError(t, f.sync.RefreshScoreboard(ctx))

	_, err := f.svc.UpdateTeam(ctx, contestant, "b", "Mine")
	assert.True(t, errors.Is(err, util.ErrPermissionDenied))

	_, err = f.svc.UpdateTeam(ctx, admin, "b", "   ")
	assert.True(t, errors.Is(err, util.ErrMalformedInput))

	f.teams.renameErr = gorm.ErrRecordNotFound
	_, err = f.svc.UpdateTeam(ctx, admin, "zz", "Ghost")
	assert.True(t, errors.Is(err, util.ErrTeamNotFound))

	f.teams.renameErr = util.ErrTeamNameExists
	_, err = f.svc.UpdateTeam(ctx, admin, "b", "Taken")
	assert.True(t, errors.Is(err, util.ErrTeamNameExists))

	assert.Nil(t, f.teams.renamed)
	assert.Empty(t, f.feed.events)
	assert.Equal(t, uint64(1), f.sync.Snapshot().Version)
}

func TestUpdateTeamNotYetOnScoreboard(t *testing.T) {
	f := newContestFixture()

	team, err := f.svc.UpdateTeam(context.Background(), admin, "new-team", "Fresh")
	require.NoError(t, err)
	assert.Equal(t, "new-team", team.ID)
	assert.Equal(t, "Fresh", team.Name)
	assert.Equal(t, uint64(0), f.sync.Snapshot().Version)
	assert.Len(t, f.feed.events, 1)
}
