// actionctl has two subcommands: "submit" sends a single goal to an
// action server over MQTT, prints every transition as it happens, and
// exits once the goal reaches DONE (or is canceled with ^C); "report"
// renders an audit store's history as an HTML page.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/ros2go/actionlib/actionmsgs"
	"github.com/ros2go/actionlib/audit/boltaudit"
	"github.com/ros2go/actionlib/config"
	"github.com/ros2go/actionlib/csm"
	"github.com/ros2go/actionlib/manager"
	"github.com/ros2go/actionlib/observability/logging"
	"github.com/ros2go/actionlib/observability/report"
	"github.com/ros2go/actionlib/spec"
	"github.com/ros2go/actionlib/transport/mqtt"
)

// goal, feedback, and result are the demo message shapes actionctl
// drives; a real deployment generates these per-action rather than
// sharing one CLI across every action.
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
		Action: "actionctl.Task", ActionFeedback: "TaskActionFeedback", ActionGoal: "TaskActionGoal",
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
	if len(os.Args) > 1 && os.Args[1] == "report" {
		runReport(os.Args[2:])
		return
	}
	runSubmit(os.Args[1:])
}

// runReport implements "actionctl report": read every record out of
// an audit store and write the rendered HTML page to a file (or
// stdout).
func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	auditPath := fs.String("audit", "", "path to the bbolt audit store (required)")
	title := fs.String("title", "Goal history", "report title")
	out := fs.String("out", "", "output file (default: stdout)")
	fs.Parse(args)

	if *auditPath == "" {
		fmt.Fprintln(os.Stderr, "actionctl report: -audit is required")
		os.Exit(1)
	}

	sink, err := boltaudit.Open(*auditPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "actionctl report:", err)
		os.Exit(1)
	}
	defer sink.Close()

	records, err := sink.List()
	if err != nil {
		fmt.Fprintln(os.Stderr, "actionctl report:", err)
		os.Exit(1)
	}

	html := report.Render(*title, records)

	if *out == "" {
		os.Stdout.Write(html)
		return
	}
	if err := os.WriteFile(*out, html, 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "actionctl report:", err)
		os.Exit(1)
	}
}

func runSubmit(args []string) {
	cfg := &config.Config{Broker: "tcp://localhost:1883", Namespace: "actionctl/task"}
	if path := config.PreScanConfigPath(args); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}

	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	fs.String("c", "", "config file (YAML), read before other flags are applied")
	task := fs.String("task", "", "task string to send as the goal")
	timeout := fs.Duration("timeout", time.Minute, "give up waiting for a result after this long")
	config.RegisterFlags(fs, cfg)
	fs.Parse(args)

	if *task == "" {
		fmt.Fprintln(os.Stderr, "actionctl: -task is required")
		os.Exit(1)
	}

	logger := logging.Default()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	coupling := mqtt.New(mqtt.Options{
		Broker:    cfg.Broker,
		ClientID:  cfg.ClientID,
		KeepAlive: cfg.KeepAlive,
		Insecure:  cfg.Insecure,
		Reconnect: true,
		Clean:     true,
		QoS:       1,
	})

	m := manager.New[goal, feedback, result](actionSpec(), coupling, cfg.Topics(), "actionctl", logger, nil)
	if err := m.Start(sigCtx); err != nil {
		fmt.Fprintln(os.Stderr, "actionctl: starting manager:", err)
		os.Exit(1)
	}
	defer m.Stop(context.Background())

	done := make(chan struct{})
	var finalResult result
	var finalState actionmsgs.TerminalState

	cb := csm.Callbacks[feedback, result]{
		OnTransition: func(h csm.Handle, state actionmsgs.CommState, status actionmsgs.GoalStatus, r *result) {
			logger.Infof("transition -> %s", state)
			if state == actionmsgs.Done {
				if r != nil {
					finalResult = *r
				}
				close(done)
			}
		},
		OnFeedback: func(h csm.Handle, f feedback, state actionmsgs.CommState) {
			logger.Infof("feedback: %d%%", f.Percent)
		},
	}

	handle, err := m.SubmitGoal(sigCtx, goal{Task: *task}, cb)
	if err != nil {
		fmt.Fprintln(os.Stderr, "actionctl: submitting goal:", err)
		os.Exit(1)
	}

	select {
	case <-done:
		finalState = handle.TerminalState()
	case <-sigCtx.Done():
		handle.Cancel()
		<-done
		finalState = handle.TerminalState()
	}

	out, _ := json.Marshal(struct {
		Outcome string `json:"outcome"`
		Text    string `json:"text,omitempty"`
		Result  result `json:"result"`
	}{Outcome: finalState.State.String(), Text: finalState.Text, Result: finalResult})
	fmt.Println(string(out))
}
