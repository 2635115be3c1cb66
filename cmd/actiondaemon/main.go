// actiondaemon resubmits a fixed goal on a cron schedule for as long
// as it runs, logging each run's outcome and appending it to an audit
// trail. It is meant for goals that represent recurring maintenance
// work (a periodic health check, a nightly rebalance) rather than
// user-triggered ones.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/ros2go/actionlib/actionmsgs"
	"github.com/ros2go/actionlib/audit/boltaudit"
	"github.com/ros2go/actionlib/config"
	"github.com/ros2go/actionlib/csm"
	"github.com/ros2go/actionlib/manager"
	"github.com/ros2go/actionlib/observability/feed"
	"github.com/ros2go/actionlib/observability/logging"
	"github.com/ros2go/actionlib/spec"
	"github.com/ros2go/actionlib/transport/mqtt"
)

type goal struct {
	Task string `json:"task"`
}

type feedback struct {
	Percent int `json:"percent"`
}

type result struct {
	Message string `json:"message"`
}

func actionSpec() *spec.ActionSpec[goal, feedback, result] {
	sp, err := spec.New(spec.Names{
		Action: "actiondaemon.Task", ActionFeedback: "TaskActionFeedback", ActionGoal: "TaskActionGoal",
		ActionResult: "TaskActionResult", Feedback: "TaskFeedback", Goal: "TaskGoal", Result: "TaskResult",
	}, spec.Funcs[goal, feedback, result]{
		GoalOf:           func(g actionmsgs.ActionGoal[goal]) goal { return g.Goal },
		ResultOf:         func(r actionmsgs.ActionResult[result]) result { return r.Result },
		FeedbackOf:       func(f actionmsgs.ActionFeedback[feedback]) feedback { return f.Feedback },
		GoalIDOf:         func(g actionmsgs.ActionGoal[goal]) actionmsgs.GoalID { return g.GoalID },
		StatusOfFeedback: func(f actionmsgs.ActionFeedback[feedback]) actionmsgs.GoalStatus { return f.Status },
		StatusOfResult:   func(r actionmsgs.ActionResult[result]) actionmsgs.GoalStatus { return r.Status },
		NewActionGoal: func(g goal, stamp time.Time, id actionmsgs.GoalID) actionmsgs.ActionGoal[goal] {
			return actionmsgs.ActionGoal[goal]{Header: actionmsgs.Header{Stamp: stamp}, GoalID: id, Goal: g}
		},
		NewActionFeedback: func(f feedback, stamp time.Time, status actionmsgs.GoalStatus) actionmsgs.ActionFeedback[feedback] {
			return actionmsgs.ActionFeedback[feedback]{Header: actionmsgs.Header{Stamp: stamp}, Status: status, Feedback: f}
		},
		NewActionResult: func(r result, stamp time.Time, status actionmsgs.GoalStatus) actionmsgs.ActionResult[result] {
			return actionmsgs.ActionResult[result]{Header: actionmsgs.Header{Stamp: stamp}, Status: status, Result: r}
		},
	})
	if err != nil {
		panic(err)
	}
	return sp
}

func main() {
	args := os.Args[1:]

	cfg := &config.Config{Broker: "tcp://localhost:1883", Namespace: "actiondaemon/task"}
	if path := config.PreScanConfigPath(args); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	flag.String("c", "", "config file (YAML), read before other flags are applied")
	task := flag.String("task", "health-check", "task string to resubmit on schedule")
	schedule := flag.String("schedule", "0 */5 * * * *", "cron expression (seconds field included) for resubmission")
	perGoalTimeout := flag.Duration("goal-timeout", 2*time.Minute, "give up on one run after this long")
	config.RegisterFlags(flag.CommandLine, cfg)
	flag.Parse()

	expr, err := cronexpr.Parse(*schedule)
	if err != nil {
		fmt.Fprintln(os.Stderr, "actiondaemon: bad schedule:", err)
		os.Exit(1)
	}

	logger := logging.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var sink *boltaudit.Sink
	if cfg.AuditPath != "" {
		sink, err = boltaudit.Open(cfg.AuditPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "actiondaemon: opening audit store:", err)
			os.Exit(1)
		}
		defer sink.Close()
	}

	coupling := mqtt.New(mqtt.Options{
		Broker:    cfg.Broker,
		ClientID:  cfg.ClientID,
		KeepAlive: cfg.KeepAlive,
		Insecure:  cfg.Insecure,
		Reconnect: true,
		Clean:     true,
		QoS:       1,
	})

	var m *manager.Manager[goal, feedback, result]
	if sink != nil {
		m = manager.New[goal, feedback, result](actionSpec(), coupling, cfg.Topics(), "actiondaemon", logger, sink)
	} else {
		m = manager.New[goal, feedback, result](actionSpec(), coupling, cfg.Topics(), "actiondaemon", logger, nil)
	}
	if cfg.Feed.Enabled {
		f := feed.New()
		m.AttachFeed(f)
		go func() {
			if err := feed.Serve(ctx, cfg.Feed.Addr, f); err != nil && ctx.Err() == nil {
				logger.Infof("feed server stopped: %v", err)
			}
		}()
		logger.Infof("live feed listening on %q", cfg.Feed.Addr)
	}

	if err := m.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "actiondaemon: starting manager:", err)
		os.Exit(1)
	}
	defer m.Stop(context.Background())

	logger.Infof("scheduled %q on %q", *task, *schedule)

	next := expr.Next(time.Now())
	for {
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case fired := <-timer.C:
			runOnce(ctx, m, *task, *perGoalTimeout, logger)
			next = expr.Next(fired)
		}
	}
}

func runOnce(parent context.Context, m *manager.Manager[goal, feedback, result], task string, timeout time.Duration, logger *logging.Logger) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	done := make(chan struct{})
	cb := csm.Callbacks[feedback, result]{
		OnTransition: func(h csm.Handle, state actionmsgs.CommState, status actionmsgs.GoalStatus, r *result) {
			if state == actionmsgs.Done {
				close(done)
			}
		},
	}

	handle, err := m.SubmitGoal(ctx, goal{Task: task}, cb)
	if err != nil {
		logger.Infof("run failed to submit: %v", err)
		return
	}

	select {
	case <-done:
		ts := handle.TerminalState()
		logger.Infof("run finished: %s", ts.State)
	case <-ctx.Done():
		handle.Cancel()
		logger.Infof("run timed out, cancel requested")
	}
}
