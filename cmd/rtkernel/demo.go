package main

import (
	"time"

	"go.uber.org/zap"

	"rtkernel/pkg/kernel"
	"rtkernel/pkg/workload"
)

// registerDemoTasks mirrors the canonical two-periodic/two-aperiodic
// workload used to exercise the dispatcher: two EDF tasks sharing an
// identical period/capacity/deadline, and two round-robin tasks at
// different priority weights so one visibly wins more dispatch slots.
func registerDemoTasks(k *kernel.Kernel, cfg demoConfig, logger *zap.Logger) error {
	for i, spec := range cfg.periodic {
		name := spec.name
		gen := workload.NewGenerator(cfg.quantum)
		gen.SetDutyCycle(spec.dutyCycle)

		id, err := k.AddPeriodicTask(
			periodicEntry(name, gen, logger),
			spec.period,
			spec.capacity,
			spec.deadline,
			cfg.guardSize,
		)
		if err != nil {
			return err
		}

		logger.Info("registered periodic task",
			zap.Int("index", i),
			zap.String("name", name),
			zap.Uint16("id", uint16(id)),
			zap.Int("period", spec.period),
			zap.Int("capacity", spec.capacity),
			zap.Int("deadline", spec.deadline),
		)
	}

	for i, spec := range cfg.aperiodic {
		name := spec.name
		gen := workload.NewGenerator(cfg.quantum)
		gen.SetDutyCycle(spec.dutyCycle)

		id, err := k.AddTask(aperiodicEntry(name, gen, logger), spec.priority, cfg.guardSize)
		if err != nil {
			return err
		}

		logger.Info("registered aperiodic task",
			zap.Int("index", i),
			zap.String("name", name),
			zap.Uint16("id", uint16(id)),
			zap.Uint16("priority", uint16(spec.priority)),
		)
	}

	return nil
}

func periodicEntry(name string, gen *workload.Generator, logger *zap.Logger) kernel.Entry {
	return func(tc *kernel.TaskContext) {
		for {
			gen.Simulate()
			logger.Debug("periodic task checkpoint", zap.String("task", name), zap.Uint16("id", uint16(tc.ID())))
			tc.Checkpoint()
		}
	}
}

func aperiodicEntry(name string, gen *workload.Generator, logger *zap.Logger) kernel.Entry {
	return func(tc *kernel.TaskContext) {
		for {
			gen.Simulate()
			logger.Debug("aperiodic task checkpoint", zap.String("task", name), zap.Uint16("id", uint16(tc.ID())))
			tc.Checkpoint()
		}
	}
}

type periodicTaskSpec struct {
	name      string
	period    int
	capacity  int
	deadline  int
	dutyCycle float64
}

type aperiodicTaskSpec struct {
	name      string
	priority  kernel.PriorityLevel
	dutyCycle float64
}

type demoConfig struct {
	quantum   time.Duration
	guardSize int
	periodic  []periodicTaskSpec
	aperiodic []aperiodicTaskSpec
}

func defaultDemoConfig(guardSize int, quantum time.Duration) demoConfig {
	return demoConfig{
		quantum:   quantum,
		guardSize: guardSize,
		periodic: []periodicTaskSpec{
			{name: "task0", period: 100, capacity: 30, deadline: 100, dutyCycle: 0.6},
			{name: "task1", period: 100, capacity: 30, deadline: 100, dutyCycle: 0.6},
		},
		aperiodic: []aperiodicTaskSpec{
			{name: "aperiodic-high", priority: kernel.PriorityHigh, dutyCycle: 0.3},
			{name: "aperiodic-low", priority: kernel.PriorityLow, dutyCycle: 0.3},
		},
	}
}
