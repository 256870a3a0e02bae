package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// 一意制約や楽観ロックの競合
	ErrConflict = errors.New("conflict")

	// 保存データが壊れていて読めない
	ErrCorruptData = errors.New("corrupt data")

	// 必要なインデックスが無い
	ErrIndexMissing = errors.New("required index is missing")
)
