package util

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 上传 CSV 相关常量
const (
	MaxCSVUploadSize = 10 << 20
	CSVExtension     = ".csv"
	MimeText         = "text/"
	MimeOctetStream  = "application/octet-stream"
)

// Redis 键
const (
	ContestStatusKey = "contest:status"
)
