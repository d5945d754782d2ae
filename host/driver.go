package host

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Tsuguri/embedded-js-tests/domain/entities"
	domainerrors "github.com/Tsuguri/embedded-js-tests/domain/errors"
	"github.com/Tsuguri/embedded-js-tests/domain/ports"
)

// driverConfig holds configuration for the Driver.
type driverConfig struct {
	logger  *slog.Logger
	sleeper ports.Sleeper
	policy  entities.ErrorPolicy
}

func defaultDriverConfig() driverConfig {
	return driverConfig{
		sleeper: ports.SleeperFunc(time.Sleep),
		policy:  entities.PolicyIsolate,
	}
}

// DriverOption configures a Driver.
type DriverOption func(*driverConfig)

// WithErrorPolicy selects how a throwing update hook affects the tick.
func WithErrorPolicy(p entities.ErrorPolicy) DriverOption {
	return func(c *driverConfig) {
		c.policy = p
	}
}

// WithDriverLogger sets the logger for instance failures.
func WithDriverLogger(l *slog.Logger) DriverOption {
	return func(c *driverConfig) {
		c.logger = l
	}
}

// WithFrameSleeper replaces time.Sleep between frames in Run.
func WithFrameSleeper(s ports.Sleeper) DriverOption {
	return func(c *driverConfig) {
		c.sleeper = s
	}
}

// Driver calls the update hook of a set of instances once per frame.
// Under entities.PolicyIsolate a throwing instance is recorded and the
// remaining instances are still driven.
type Driver struct {
	config    driverConfig
	instances []*Instance
	frame     uint64
}

// NewDriver creates a Driver for instances.
func NewDriver(instances []*Instance, opts ...DriverOption) *Driver {
	cfg := defaultDriverConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Driver{config: cfg, instances: append([]*Instance(nil), instances...)}
}

// Add appends instances to the frame.
func (d *Driver) Add(instances ...*Instance) {
	d.instances = append(d.instances, instances...)
}

// Len returns the number of driven instances.
func (d *Driver) Len() int { return len(d.instances) }

// Tick drives every instance once. Instances without an update hook count
// as skipped. Under entities.PolicyAbort the first failure ends the tick,
// the remaining instances count as skipped and the failure is returned.
func (d *Driver) Tick(g *Guard) (entities.TickReport, error) {
	if err := g.Check(); err != nil {
		return entities.TickReport{}, err
	}

	logger := d.config.logger
	if logger == nil {
		logger = g.Logger()
	}

	d.frame++
	start := time.Now()
	report := entities.TickReport{Frame: d.frame}

	for i, inst := range d.instances {
		if !inst.HasUpdate() {
			report.Skipped++
			continue
		}

		err := inst.Drive(g)
		report.Driven++
		if err == nil {
			continue
		}

		logger.Warn("update failed", "frame", d.frame, "instance", inst.Name(), "error", err)
		report.Failures = append(report.Failures, entities.InstanceFailure{
			Instance: inst.Name(),
			Error:    domainerrors.ToErrorDetail(err),
		})
		if d.config.policy == entities.PolicyAbort {
			report.Skipped += len(d.instances) - i - 1
			report.Duration = time.Since(start)
			return report, fmt.Errorf("frame %d: %w", d.frame, err)
		}
	}

	report.Duration = time.Since(start)
	return report, nil
}

// Run ticks frames times, sleeping interval between frames. The guard is
// held for the whole run.
func (d *Driver) Run(g *Guard, frames int, interval time.Duration) ([]entities.TickReport, error) {
	reports := make([]entities.TickReport, 0, frames)
	for i := 0; i < frames; i++ {
		if i > 0 && interval > 0 {
			d.config.sleeper.Sleep(interval)
		}
		r, err := d.Tick(g)
		if err != nil {
			if r.Frame != 0 {
				reports = append(reports, r)
			}
			return reports, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}
