package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateResolver(); err != nil {
		return err
	}
	if err := c.validateApproval(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return fmt.Errorf("paths.data_dir is required")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return fmt.Errorf("paths.log_dir is required")
	}
	return nil
}

func (c *Config) validateResolver() error {
	if c.Resolver.MinScore <= 0 || c.Resolver.MinScore > 1 {
		return fmt.Errorf("resolver.min_score must be in (0, 1], got %v", c.Resolver.MinScore)
	}
	if c.Resolver.Margin < 0 || c.Resolver.Margin >= 1 {
		return fmt.Errorf("resolver.margin must be in [0, 1), got %v", c.Resolver.Margin)
	}
	if c.Resolver.TeamMinScore <= 0 || c.Resolver.TeamMinScore > 1 {
		return fmt.Errorf("resolver.team_min_score must be in (0, 1], got %v", c.Resolver.TeamMinScore)
	}
	if c.Resolver.RecencyWindowDays < 0 {
		return fmt.Errorf("resolver.recency_window_days must not be negative, got %d", c.Resolver.RecencyWindowDays)
	}
	return nil
}

func (c *Config) validateApproval() error {
	if c.Approval.MinTrustLevel < 0 || c.Approval.MinTrustLevel > 3 {
		return fmt.Errorf("approval.min_trust_level must be in [0, 3], got %d", c.Approval.MinTrustLevel)
	}
	if c.Approval.MinConfidence <= 0 || c.Approval.MinConfidence > 1 {
		return fmt.Errorf("approval.min_confidence must be in (0, 1], got %v", c.Approval.MinConfidence)
	}
	if c.Approval.BlockConfidenceFloor < 0 || c.Approval.BlockConfidenceFloor >= c.Approval.MinConfidence {
		return fmt.Errorf("approval.block_confidence_floor must be in [0, min_confidence), got %v", c.Approval.BlockConfidenceFloor)
	}
	if c.Approval.RevocationWindowMinutes <= 0 {
		return fmt.Errorf("approval.revocation_window_minutes must be positive, got %d", c.Approval.RevocationWindowMinutes)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.PollInterval <= 0 {
		return fmt.Errorf("pipeline.poll_interval must be positive, got %d", c.Pipeline.PollInterval)
	}
	if c.Pipeline.RetryLimit < 0 {
		return fmt.Errorf("pipeline.retry_limit must not be negative, got %d", c.Pipeline.RetryLimit)
	}
	if c.Pipeline.HeartbeatInterval <= 0 {
		return fmt.Errorf("pipeline.heartbeat_interval must be positive, got %d", c.Pipeline.HeartbeatInterval)
	}
	if c.Pipeline.HeartbeatTimeout <= c.Pipeline.HeartbeatInterval {
		return fmt.Errorf("pipeline.heartbeat_timeout must exceed heartbeat_interval, got %d", c.Pipeline.HeartbeatTimeout)
	}
	if c.Pipeline.StaleProcessingSeconds <= 0 {
		return fmt.Errorf("pipeline.stale_processing_seconds must be positive, got %d", c.Pipeline.StaleProcessingSeconds)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
