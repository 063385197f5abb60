package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// RoomTypeConfig is one entry of room_types.yaml.
type RoomTypeConfig struct {
	ID                      int64  `yaml:"id"`
	Code                    string `yaml:"code"`
	Name                    string `yaml:"name"`
	DefaultMaxSalesQuantity int    `yaml:"default_max_sales_quantity"`
	WeekdayPrice            int64  `yaml:"weekday_price"`
	WeekendPrice            int64  `yaml:"weekend_price"`
	Capacity                int    `yaml:"capacity"`
	IsActive                bool   `yaml:"is_active"`
}

// BlackoutConfig closes sales on a date, for all room types or the listed codes.
type BlackoutConfig struct {
	Date      string   `yaml:"date"`
	Reason    string   `yaml:"reason"`
	RoomTypes []string `yaml:"room_types,omitempty"`
}

// RoomTypesConfig is the root of room_types.yaml.
type RoomTypesConfig struct {
	RoomTypes []RoomTypeConfig `yaml:"room_types"`
	Blackouts []BlackoutConfig `yaml:"blackouts"`
}

// LoadRoomTypesConfig loads and validates the room type catalog.
func LoadRoomTypesConfig(path string) (*RoomTypesConfig, error) {
	if path == "" {
		path = "configs/room_types.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read room types config: %w", err)
	}

	var cfg RoomTypesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse room types config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate room types config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the catalog for errors.
func (c *RoomTypesConfig) Validate() error {
	if len(c.RoomTypes) == 0 {
		return fmt.Errorf("no room types defined")
	}

	ids := make(map[int64]bool)
	codes := make(map[string]bool)

	for i, rt := range c.RoomTypes {
		if rt.ID <= 0 {
			return fmt.Errorf("room_types[%d]: id must be positive, got %d", i, rt.ID)
		}
		if ids[rt.ID] {
			return fmt.Errorf("room_types[%d]: duplicate id %d", i, rt.ID)
		}
		ids[rt.ID] = true

		if rt.Code == "" {
			return fmt.Errorf("room_types[%d]: code is required", i)
		}
		if codes[rt.Code] {
			return fmt.Errorf("room_types[%d]: duplicate code '%s'", i, rt.Code)
		}
		codes[rt.Code] = true

		if rt.Name == "" {
			return fmt.Errorf("room_types[%d]: name is required", i)
		}
		if rt.DefaultMaxSalesQuantity < 0 {
			return fmt.Errorf("room_types[%d]: default_max_sales_quantity cannot be negative", i)
		}
		if rt.WeekdayPrice < 0 || rt.WeekendPrice < 0 {
			return fmt.Errorf("room_types[%d]: prices cannot be negative", i)
		}
		if rt.Capacity <= 0 {
			return fmt.Errorf("room_types[%d]: capacity must be positive", i)
		}
	}

	for i, b := range c.Blackouts {
		if _, err := time.Parse("2006-01-02", b.Date); err != nil {
			return fmt.Errorf("blackouts[%d]: invalid date '%s', expected YYYY-MM-DD", i, b.Date)
		}
		for _, code := range b.RoomTypes {
			if !codes[code] {
				return fmt.Errorf("blackouts[%d]: unknown room type '%s'", i, code)
			}
		}
	}

	return nil
}

// IDsForCodes maps room type codes to ids. An empty list means every room type.
func (c *RoomTypesConfig) IDsForCodes(codes []string) []int64 {
	var ids []int64
	for _, rt := range c.RoomTypes {
		if len(codes) == 0 {
			ids = append(ids, rt.ID)
			continue
		}
		for _, code := range codes {
			if rt.Code == code {
				ids = append(ids, rt.ID)
				break
			}
		}
	}
	return ids
}
