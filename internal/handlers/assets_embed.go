package handlers

import "embed"

// AssetsFS holds the stylesheet served under /assets
//
//go:embed templates/assets/*
var AssetsFS embed.FS
