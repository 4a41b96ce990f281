package types

import (
	"database/sql/driver"
	"encoding/json"
)

// Analytics holds the denormalized view counters of a tool, persisted as JSONB.
type Analytics struct {
	TotalViews   int64 `json:"totalViews" bson:"totalViews"`
	UniqueViews  int64 `json:"uniqueViews" bson:"uniqueViews"`
	WeeklyViews  int64 `json:"weeklyViews" bson:"weeklyViews"`
	MonthlyViews int64 `json:"monthlyViews" bson:"monthlyViews"`
}

// Value marshals the counters into JSON for Postgres.
func (a Analytics) Value() (driver.Value, error) {
	buf, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

// Scan decodes JSONB into the counters. NULL leaves every counter at zero.
func (a *Analytics) Scan(value any) error {
	*a = Analytics{}
	if value == nil {
		return nil
	}
	return scanJSON("analytics", value, a)
}

// CommentStats holds the denormalized comment counters of a tool.
type CommentStats struct {
	TotalComments    int64 `json:"totalComments" bson:"totalComments"`
	ApprovedComments int64 `json:"approvedComments" bson:"approvedComments"`
}

func (c CommentStats) Value() (driver.Value, error) {
	buf, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

func (c *CommentStats) Scan(value any) error {
	*c = CommentStats{}
	if value == nil {
		return nil
	}
	return scanJSON("comment stats", value, c)
}

// MediaStats holds the denormalized media counters of a tool.
type MediaStats struct {
	TotalMedia  int64 `json:"totalMedia" bson:"totalMedia"`
	Screenshots int64 `json:"screenshots" bson:"screenshots"`
	Videos      int64 `json:"videos" bson:"videos"`
}

func (m MediaStats) Value() (driver.Value, error) {
	buf, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(buf), nil
}

func (m *MediaStats) Scan(value any) error {
	*m = MediaStats{}
	if value == nil {
		return nil
	}
	return scanJSON("media stats", value, m)
}
