package main

import "time"

// GlobalFlags holds persistent flags shared by every subcommand.
type GlobalFlags struct {
	ConfigPath string
	PIDDir     string
	LogDir     string
}

// ImageFlags overrides the image-editing server launch configuration.
type ImageFlags struct {
	GPU       string
	Host      string
	Port      int
	ModelPath string
	ModelName string
}

// ShapeFlags overrides the shape-generation server launch configuration.
type ShapeFlags struct {
	GPU       string
	Host      string
	Port      int
	ModelPath string
	OutputDir string
}

// ServeFlags holds flags for the serve command.
type ServeFlags struct {
	Listen   string
	BasePath string
}

// LogsFlags holds flags for the logs command.
type LogsFlags struct {
	Lines int
}

// HealthFlags holds flags for the health command.
type HealthFlags struct {
	Timeout time.Duration
}

// HistoryFlags holds flags for the history command.
type HistoryFlags struct {
	Limit int
}
