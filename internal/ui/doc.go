// Package ui provides semantic text formatting for CLI output.
//
// Formatters render content by meaning (paths, keys, errors) and fall back
// to plain decorations when NO_COLOR is set or the terminal has no color
// support:
//
//	ui.Code.Sprint("mops decrypt secrets.json")   // `mops decrypt secrets.json`
//	ui.Key.Sprint("DADA")                         // 'DADA'
//	ui.Highlight.Sprint("sops-key")               // 'sops-key'
//	ui.Muted.Sprint("3.7.3")                      // (3.7.3)
//	ui.Ratio(2, 3)                                // 2 of 3
package ui
