package rule

import "embed"

// builtinAlmanacsFS embeds the built-in almanacs directory: the worked
// example in text form and a YAML almanac exercising the shared boundary
// value between back to back rules.
//
//go:embed almanacs/*.txt almanacs/*.yml
var builtinAlmanacsFS embed.FS
