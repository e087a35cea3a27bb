package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// WidgetType selects how the UI renders a widget. Opaque to the connector layer.
type WidgetType string

const (
	WidgetChart  WidgetType = "chart"
	WidgetTable  WidgetType = "table"
	WidgetMetric WidgetType = "metric"
	WidgetStatus WidgetType = "status"
	WidgetList   WidgetType = "list"
)

// ValidWidgetTypes lists every recognized widget type.
var ValidWidgetTypes = []WidgetType{WidgetChart, WidgetTable, WidgetMetric, WidgetStatus, WidgetList}

// FieldMapping renames one source field to a target field in query results.
type FieldMapping struct {
	SourceField string `json:"source_field" yaml:"source_field"`
	TargetField string `json:"target_field" yaml:"target_field"`
}

// QueryConfig binds a widget to a query against one system instance.
type QueryConfig struct {
	Query                  string            `json:"query" yaml:"query"`
	Method                 string            `json:"method,omitempty" yaml:"method,omitempty"`
	Params                 map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Headers                map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Mapping                []FieldMapping    `json:"mapping,omitempty" yaml:"mapping,omitempty"`
	RefreshIntervalSeconds int               `json:"refresh_interval_seconds" yaml:"refresh_interval_seconds"`
}

// RefreshInterval returns the refresh period, or zero when refresh is disabled.
func (q QueryConfig) RefreshInterval() time.Duration {
	if q.RefreshIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(q.RefreshIntervalSeconds) * time.Second
}

// Widget is a persisted dashboard definition binding a query against an
// instance to a refresh schedule and a visualization hint.
type Widget struct {
	ID           string          `json:"id" yaml:"id"`
	Name         string          `json:"name" yaml:"name"`
	Type         WidgetType      `json:"type" yaml:"type"`
	SystemName   string          `json:"system_name" yaml:"system_name"`
	InstanceID   string          `json:"instance_id" yaml:"instance_id"`
	QueryConfig  QueryConfig     `json:"query_config" yaml:"query_config"`
	VisualConfig json.RawMessage `json:"visual_config,omitempty" yaml:"-"`
	IsActive     bool            `json:"is_active" yaml:"is_active"`
	CreatedAt    time.Time       `json:"created_at" yaml:"-"`
	UpdatedAt    time.Time       `json:"updated_at" yaml:"-"`
}

// Validate checks required fields and the widget type.
func (w *Widget) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !validWidgetType(w.Type) {
		return fmt.Errorf("unknown widget type: %s", w.Type)
	}
	if strings.TrimSpace(w.SystemName) == "" {
		return fmt.Errorf("system_name is required")
	}
	if strings.TrimSpace(w.InstanceID) == "" {
		return fmt.Errorf("instance_id is required")
	}
	if strings.TrimSpace(w.QueryConfig.Query) == "" {
		return fmt.Errorf("query_config.query is required")
	}
	if w.QueryConfig.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("query_config.refresh_interval_seconds must not be negative")
	}
	return nil
}

func validWidgetType(t WidgetType) bool {
	for _, v := range ValidWidgetTypes {
		if t == v {
			return true
		}
	}
	return false
}
