// Package saga 实现按步骤执行、失败逆序补偿的Saga流程
//
// 在本项目中用于跨文档的状态迁移：
// 订单、库存、支付记录分别保存，任一步失败时撤销已完成的步骤。
//
//	s := saga.NewSaga(5 * time.Second)
//	s.AddStep("扣减库存", deductStock, restoreStock)
//	s.AddStep("保存订单", saveOrder, nil)
//	err := s.Execute(ctx)
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xiebiao/fastorder/pkg/logger"
)

// Step 表示Saga中的一个步骤
// Action和Compensate都必须可重复执行（幂等）。
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga 表示一个Saga事务
type Saga struct {
	steps    []Step
	executed []Step
	timeout  time.Duration
}

// CompensationError 补偿过程中出现的错误
// Cause是触发补偿的原始错误，Failed记录补偿失败的步骤。
type CompensationError struct {
	Cause  error
	Failed map[string]error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("%v (补偿失败步骤: %d)", e.Cause, len(e.Failed))
}

func (e *CompensationError) Unwrap() error {
	return e.Cause
}

// NewSaga 创建一个新的Saga事务，timeout<=0表示不限时
func NewSaga(timeout time.Duration) *Saga {
	return &Saga{
		steps:   make([]Step, 0),
		timeout: timeout,
	}
}

// AddStep 添加一个步骤，按添加顺序执行、逆序补偿
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// Execute 执行Saga事务
//
// 某一步失败或整体超时时，逆序补偿已完成的步骤并返回错误：
// - 补偿全部成功：返回原始错误（可用errors.Is匹配）
// - 有补偿失败：返回*CompensationError，同时记录error日志
func (s *Saga) Execute(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		if err := ctx.Err(); err != nil {
			return s.compensate(ctx, fmt.Errorf("saga超时: %w", err))
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				return s.compensate(ctx, fmt.Errorf("步骤[%d:%s]执行失败: %w", i, step.Name, err))
			}
		}

		s.executed = append(s.executed, step)
	}

	return nil
}

// compensate 逆序执行已完成步骤的补偿
// 补偿使用脱离原ctx取消信号的context，避免补偿也因超时被跳过。
// 某个补偿失败时继续执行其余补偿。
func (s *Saga) compensate(ctx context.Context, cause error) error {
	compensateCtx := context.WithoutCancel(ctx)
	failed := make(map[string]error)

	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(compensateCtx); err != nil {
			failed[step.Name] = err
			logger.Ctx(ctx).Error().
				Err(err).
				Str("step", step.Name).
				AnErr("cause", cause).
				Msg("saga补偿失败，需要人工介入")
		}
	}

	s.executed = nil

	if len(failed) > 0 {
		return &CompensationError{Cause: cause, Failed: failed}
	}
	return cause
}

// IsCompensationFailure 判断错误是否包含补偿失败
func IsCompensationFailure(err error) bool {
	var ce *CompensationError
	return errors.As(err, &ce)
}
