package config

import (
    "time"
)

// Bucket sizes one rate-limit bucket: Burst attempts at once, then one more
// every Every.
type Bucket struct {
    Burst int
    Every time.Duration
}

// RateLimitConfig throttles credential submissions.  Login and registration
// have separate buckets, each keyed by client IP plus the submitted email.
type RateLimitConfig struct {
    Enabled  bool   // RATE_LIMIT_ENABLED
    Prefix   string // RATE_LIMIT_PREFIX, Redis key prefix
    Debug    bool   // RATE_LIMIT_DEBUG exposes the bucket key in a header
    Login    Bucket // RATE_LIMIT_LOGIN_BURST, RATE_LIMIT_LOGIN_EVERY
    Register Bucket // RATE_LIMIT_REGISTER_BURST, RATE_LIMIT_REGISTER_EVERY
}

// LoadRateLimitConfig reads RATE_LIMIT_*.  Bursts below one and non-positive
// intervals fall back to the defaults.
func LoadRateLimitConfig() RateLimitConfig {
    return RateLimitConfig{
        Enabled:  envBool("RATE_LIMIT_ENABLED", true),
        Prefix:   envStr("RATE_LIMIT_PREFIX", "hs:rl"),
        Debug:    envBool("RATE_LIMIT_DEBUG", false),
        Login:    loadBucket("RATE_LIMIT_LOGIN", Bucket{Burst: 5, Every: 30 * time.Second}),
        Register: loadBucket("RATE_LIMIT_REGISTER", Bucket{Burst: 3, Every: 2 * time.Minute}),
    }
}

func loadBucket(prefix string, def Bucket) Bucket {
    b := Bucket{
        Burst: envInt(prefix+"_BURST", def.Burst),
        Every: envDur(prefix+"_EVERY", def.Every),
    }
    if b.Burst < 1 {
        b.Burst = def.Burst
    }
    if b.Every <= 0 {
        b.Every = def.Every
    }
    return b
}
