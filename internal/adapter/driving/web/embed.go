package web

import "embed"

// StaticFS holds the embedded static assets (capture and editor scripts, CSS).
//
//go:embed static/*
var StaticFS embed.FS
