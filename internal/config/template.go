package config

// Template is the TOML document emitted by `octoroute config`. It is a
// complete, valid starting point: three tiers with one endpoint each, a
// hybrid routing strategy, and commented-out optional tables.
const Template = `[server]
listen_addr = ":8080"

[[models.fast]]
name = "fast-primary"
base_url = "http://localhost:8001/v1"
max_tokens = 1024
temperature = 0.7
weight = 1.0
priority = 1

[[models.balanced]]
name = "balanced-primary"
base_url = "http://localhost:8002/v1"
max_tokens = 2048
temperature = 0.7
weight = 1.0
priority = 1

[[models.deep]]
name = "deep-primary"
base_url = "http://localhost:8003/v1"
max_tokens = 4096
temperature = 0.7
weight = 1.0
priority = 1

[routing]
strategy = "hybrid"
default_importance = "normal"
router_tier = "fast"

# Optional per-tier overrides for LLM-router classification calls. All
# three fields are required if this table is present at all.
# [routing.router_timeouts]
# fast = 5
# balanced = 10
# deep = 15

[observability]
log_level = "info"

# Per-tier request timeout overrides, in seconds. Omit a tier to use the
# default (30s).
[timeouts]
fast = 10
balanced = 30
deep = 60
`
