// Package circuitbreaker 实现熔断器模式（Circuit Breaker Pattern）
//
// 状态机：
//
//	CLOSED --连续失败达到阈值--> OPEN --冷却时间到--> CLOSED
//	                                  \--(开启半开探测时)--> HALF_OPEN
//
// 默认行为：
// 1. CLOSED状态下统计连续失败次数，成功一次即清零
// 2. 连续失败达到阈值（默认3次）转为OPEN
// 3. OPEN状态下所有请求立即返回ErrOpenState，不调用下游
// 4. 冷却计时在进入OPEN时启动一次，OPEN期间的请求不会延长冷却时间
// 5. 冷却结束后直接回到CLOSED并清零计数，没有半开探测
//
// Config.HalfOpen=true 时，冷却结束后进入HALF_OPEN：
// 只放行一个探测请求，成功则CLOSED，失败则重新OPEN。
//
// 熔断器实例由调用方创建并注入，不使用包级全局状态，
// 不同的下游依赖各自持有独立的计数。
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State 熔断器状态
type State int

const (
	// StateClosed 关闭状态（正常放行）
	StateClosed State = iota

	// StateOpen 打开状态（快速失败）
	StateOpen

	// StateHalfOpen 半开状态（仅放行一个探测请求）
	StateHalfOpen
)

// String 状态转字符串（便于日志）
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

const (
	// DefaultFailureThreshold 默认连续失败阈值
	DefaultFailureThreshold = 3
	// DefaultCooldown 默认冷却时间
	DefaultCooldown = 10 * time.Second
)

// ErrOpenState 熔断器打开时返回的错误
var ErrOpenState = errors.New("circuit breaker is open")

// Config 熔断器配置
type Config struct {
	// FailureThreshold 连续失败多少次后熔断，0表示使用默认值3
	FailureThreshold uint32

	// Cooldown 熔断后的冷却时间，0表示使用默认值10秒
	Cooldown time.Duration

	// HalfOpen 冷却结束后是否先进入半开状态探测
	HalfOpen bool

	// ReadyToTrip 自定义熔断条件，为nil时按连续失败次数判断
	ReadyToTrip func(counts Counts) bool

	// OnStateChange 状态变化回调（持锁调用，回调内不要再调用熔断器方法）
	OnStateChange func(name string, from State, to State)

	// Now 时钟，测试时可替换
	Now func() time.Time
}

// Counts 请求统计
type Counts struct {
	Requests             uint32 // 放行的请求数
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// FailureRate 失败率
func (c *Counts) FailureRate() float64 {
	if c.Requests == 0 {
		return 0
	}
	return float64(c.TotalFailures) / float64(c.Requests)
}

// Reset 清零
func (c *Counts) Reset() {
	*c = Counts{}
}

func (c *Counts) onRequest() {
	c.Requests++
}

func (c *Counts) onSuccess() {
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) onFailure() {
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// CircuitBreaker 熔断器
//
// generation在每次状态变化时递增：
// 旧状态下发出、新状态下才返回的请求结果会被丢弃，避免污染新一轮计数。
type CircuitBreaker struct {
	name        string
	cooldown    time.Duration
	halfOpen    bool
	readyToTrip func(counts Counts) bool
	now         func() time.Time

	mu            sync.Mutex
	state         State
	generation    uint64
	counts        Counts
	expiry        time.Time // OPEN状态的冷却截止时间
	probing       bool      // HALF_OPEN状态下探测请求是否在途
	onStateChange func(name string, from State, to State)
}

// NewCircuitBreaker 创建熔断器
func NewCircuitBreaker(name string, config Config) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:          name,
		cooldown:      config.Cooldown,
		halfOpen:      config.HalfOpen,
		readyToTrip:   config.ReadyToTrip,
		now:           config.Now,
		onStateChange: config.OnStateChange,
	}

	threshold := config.FailureThreshold
	if threshold == 0 {
		threshold = DefaultFailureThreshold
	}
	if cb.readyToTrip == nil {
		cb.readyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		}
	}
	if cb.cooldown <= 0 {
		cb.cooldown = DefaultCooldown
	}
	if cb.now == nil {
		cb.now = time.Now
	}
	return cb
}

// Execute 在熔断器保护下执行req
// OPEN（或半开且已有探测在途）时直接返回ErrOpenState，req不会被调用。
func (cb *CircuitBreaker) Execute(req func() error) error {
	generation, err := cb.beforeRequest()
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			cb.afterRequest(generation, false)
			panic(r)
		}
	}()

	err = req()
	cb.afterRequest(generation, err == nil)
	return err
}

func (cb *CircuitBreaker) beforeRequest() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	state, generation := cb.currentState(now)

	switch state {
	case StateOpen:
		return generation, ErrOpenState
	case StateHalfOpen:
		if cb.probing {
			return generation, ErrOpenState
		}
		cb.probing = true
	}

	cb.counts.onRequest()
	return generation, nil
}

func (cb *CircuitBreaker) afterRequest(before uint64, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	state, generation := cb.currentState(now)
	if generation != before {
		return
	}

	if success {
		cb.onSuccess(state, now)
	} else {
		cb.onFailure(state, now)
	}
}

func (cb *CircuitBreaker) onSuccess(state State, now time.Time) {
	switch state {
	case StateClosed:
		cb.counts.onSuccess()
	case StateHalfOpen:
		cb.setState(StateClosed, now)
	}
}

func (cb *CircuitBreaker) onFailure(state State, now time.Time) {
	switch state {
	case StateClosed:
		cb.counts.onFailure()
		if cb.readyToTrip(cb.counts) {
			cb.setState(StateOpen, now)
		}
	case StateHalfOpen:
		cb.setState(StateOpen, now)
	}
}

// currentState 计算当前状态，冷却到期时在这里完成OPEN的迁出
func (cb *CircuitBreaker) currentState(now time.Time) (State, uint64) {
	if cb.state == StateOpen && !now.Before(cb.expiry) {
		if cb.halfOpen {
			cb.setState(StateHalfOpen, now)
		} else {
			cb.setState(StateClosed, now)
		}
	}
	return cb.state, cb.generation
}

func (cb *CircuitBreaker) setState(state State, now time.Time) {
	if cb.state == state {
		return
	}

	prev := cb.state
	cb.state = state
	cb.generation++
	cb.counts.Reset()
	cb.probing = false

	if state == StateOpen {
		cb.expiry = now.Add(cb.cooldown)
	} else {
		cb.expiry = time.Time{}
	}

	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, prev, state)
	}
}

// State 当前状态
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state, _ := cb.currentState(cb.now())
	return state
}

// Counts 当前统计（副本）
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.counts
}
