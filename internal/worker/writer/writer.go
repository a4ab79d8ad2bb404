package writer

import (
	"context"
)

// BatchWriter 批量写入下游，AsyncBatchWriter 的后端
type BatchWriter[T any] interface {
	BWrite(ctx context.Context, batch []T) error
	Close() error
}

// BatchWriterFunc 把函数适配成没有需要释放资源的 BatchWriter
type BatchWriterFunc[T any] func(ctx context.Context, batch []T) error

func (f BatchWriterFunc[T]) BWrite(ctx context.Context, batch []T) error {
	return f(ctx, batch)
}

func (f BatchWriterFunc[T]) Close() error {
	return nil
}
