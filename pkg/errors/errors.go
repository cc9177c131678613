package errors

import "errors"

var (
	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

	// ErrLockNotAcquired 在超时时间内未能获得排课锁
	ErrLockNotAcquired = errors.New("排课资源繁忙，请稍后重试")
)
