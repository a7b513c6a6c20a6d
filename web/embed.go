// Package web bundles the shell page, view partials and browser assets.
package web

import "embed"

// TemplatesFS holds the shell and one partial per view.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds app.js and style.css, served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
