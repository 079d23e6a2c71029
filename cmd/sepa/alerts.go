package main

import (
	"fmt"

	"github.com/newthinker/sepa/internal/alert"
	"github.com/newthinker/sepa/internal/backtest"
	"github.com/newthinker/sepa/internal/config"
	"github.com/newthinker/sepa/internal/notifier/webhook"
	"go.uber.org/zap"
)

// logNotifier reports alerts through the run log.
type logNotifier struct {
	log *zap.Logger
}

func (n logNotifier) Name() string { return "log" }

func (n logNotifier) Notify(msg string) error {
	n.log.Warn(msg)
	return nil
}

func checkAlerts(cfg config.AlertsConfig, result *backtest.Result, log *zap.Logger) error {
	if len(cfg.Rules) == 0 {
		return nil
	}
	notifiers := []alert.Notifier{logNotifier{log: log}}
	if cfg.Webhook.URL != "" {
		hook, err := webhook.New(cfg.Webhook.URL, cfg.Webhook.Headers)
		if err != nil {
			return err
		}
		notifiers = append(notifiers, hook)
	}

	firings, err := alert.NewEvaluator(notifiers...).
		EvaluateAll(cfg.Rules, alert.MetricValues(result.Metrics))
	if err != nil {
		if firings == nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}
		log.Warn("alert delivery failed", zap.Error(err))
	}
	if cfg.FailOnCritical && alert.Critical(firings) {
		return fmt.Errorf("run %s: critical alert fired", result.RunID)
	}
	return nil
}
