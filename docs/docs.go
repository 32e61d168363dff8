// Package docs embeds the per-command help pages shown by "playtab help".
package docs

import "embed"

//go:embed commands/*.md
var Commands embed.FS
