package xid

import (
	"errors"
	"fmt"

	"github.com/sony/sonyflake/v2"
)

var (
	// ErrInvalidConfig 配置参数无效，sonyflake 初始化失败也包裹为此错误。
	ErrInvalidConfig = errors.New("xid: invalid config")

	// ErrOverTimeLimit 时间分量溢出，生成器无法继续生成 ID。
	ErrOverTimeLimit = errors.New("xid: time component overflow")

	// ErrInvalidID Decompose 的参数不是正数。
	ErrInvalidID = errors.New("xid: invalid id")

	// ErrNilGenerator 生成器为 nil 或未通过 NewGenerator 创建。
	ErrNilGenerator = errors.New("xid: nil generator (use NewGenerator to create)")
)

// 设计决策: 常量对应 Sonyflake v2 默认位布局（39+8+16），
// 升级大版本且布局改变时需同步更新 Decompose。
const (
	machineBits  = 16
	sequenceBits = 8
	machineMask  = (1 << machineBits) - 1
	sequenceMask = (1 << sequenceBits) - 1
)

// Option 配置选项函数
type Option func(*options)

type options struct {
	machineID      func() (uint16, error)
	checkMachineID func(uint16) bool
}

// WithMachineID 设置机器 ID 来源，默认 [DefaultMachineID]。
func WithMachineID(fn func() (uint16, error)) Option {
	return func(o *options) {
		o.machineID = fn
	}
}

// WithCheckMachineID 设置机器 ID 校验函数，返回 false 时 NewGenerator 失败。
func WithCheckMachineID(fn func(uint16) bool) Option {
	return func(o *options) {
		o.checkMachineID = fn
	}
}

// Generator 是并发安全的 ID 生成器。
type Generator struct {
	sf      *sonyflake.Sonyflake
	machine uint16
	// next 默认为 sf.NextID，测试中可替换
	next func() (int64, error)
}

// NewGenerator 创建生成器。
func NewGenerator(opts ...Option) (*Generator, error) {
	o := &options{machineID: DefaultMachineID}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.machineID == nil {
		o.machineID = DefaultMachineID
	}

	machine, err := o.machineID()
	if err != nil {
		return nil, fmt.Errorf("%w: machine id: %w", ErrInvalidConfig, err)
	}

	settings := sonyflake.Settings{
		MachineID: func() (int, error) { return int(machine), nil },
	}
	if o.checkMachineID != nil {
		check := o.checkMachineID
		settings.CheckMachineID = func(id int) bool { return check(uint16(id)) }
	}

	sf, err := sonyflake.New(settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &Generator{sf: sf, machine: machine, next: sf.NextID}, nil
}

// Next 生成下一个 ID。
//
// 同一 10ms 内序列号耗尽时 sonyflake 会休眠到下一个时间片，
// 因此 Next 可能短暂阻塞。
func (g *Generator) Next() (uint64, error) {
	if g == nil || g.next == nil {
		return 0, ErrNilGenerator
	}
	id, err := g.next()
	if err != nil {
		if errors.Is(err, sonyflake.ErrOverTimeLimit) {
			return 0, fmt.Errorf("%w: %w", ErrOverTimeLimit, err)
		}
		return 0, err
	}
	return uint64(id), nil
}

// MachineID 返回生成器使用的机器 ID。
func (g *Generator) MachineID() uint16 {
	return g.machine
}

// Components 是 ID 分解后的各组成部分。
type Components struct {
	ID       int64
	Time     int64 // 自 Sonyflake epoch 起的 10ms 单位
	Sequence int64
	Machine  int64
}

// Decompose 按位布局分解 ID。
func Decompose(id int64) (Components, error) {
	if id <= 0 {
		return Components{}, fmt.Errorf("%w: value must be positive, got %d", ErrInvalidID, id)
	}
	return Components{
		ID:       id,
		Machine:  id & machineMask,
		Sequence: (id >> machineBits) & sequenceMask,
		Time:     id >> (machineBits + sequenceBits),
	}, nil
}
