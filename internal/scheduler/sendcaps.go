package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CapVerdict names which cap denied a send.
type CapVerdict int

const (
	CapAllowed CapVerdict = iota
	CapDailyExceeded
	CapOrgExceeded
	CapContactExceeded
)

// String returns the verdict name for logs.
func (v CapVerdict) String() string {
	switch v {
	case CapAllowed:
		return "allowed"
	case CapDailyExceeded:
		return "daily_cap"
	case CapOrgExceeded:
		return "org_cap"
	case CapContactExceeded:
		return "contact_cap"
	}
	return "unknown"
}

// CapLimits are the daily send ceilings.
type CapLimits struct {
	Daily      int
	PerOrg     int
	PerContact int
}

// Lua script for the atomic three-cap check-and-increment. All caps are
// checked BEFORE any counter moves, and all three increment together, so
// concurrent scheduling can never overrun a cap or leak partial counts.
const capLuaScript = `
local dailyKey = KEYS[1]
local orgKey = KEYS[2]
local contactKey = KEYS[3]
local dailyLimit = tonumber(ARGV[1])
local orgLimit = tonumber(ARGV[2])
local contactLimit = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local daily = tonumber(redis.call("GET", dailyKey) or "0")
local org = tonumber(redis.call("GET", orgKey) or "0")
local contact = tonumber(redis.call("GET", contactKey) or "0")

if daily + 1 > dailyLimit then
    return 1
end
if org + 1 > orgLimit then
    return 2
end
if contact + 1 > contactLimit then
    return 3
end

if redis.call("INCR", dailyKey) == 1 then
    redis.call("EXPIRE", dailyKey, ttl)
end
if redis.call("INCR", orgKey) == 1 then
    redis.call("EXPIRE", orgKey, ttl)
end
if redis.call("INCR", contactKey) == 1 then
    redis.call("EXPIRE", contactKey, ttl)
end

return 0
`

// SendCaps enforces the global daily, per-organization, and per-contact
// send caps with a single atomic Redis script. Counters are keyed by UTC
// day and expire shortly after the day boundary.
type SendCaps struct {
	client *redis.Client
	limits CapLimits
	script *redis.Script
}

// NewSendCaps creates a cap enforcer with the given limits.
func NewSendCaps(client *redis.Client, limits CapLimits) *SendCaps {
	return &SendCaps{
		client: client,
		limits: limits,
		script: redis.NewScript(capLuaScript),
	}
}

// Reserve atomically consumes one send slot for the organization/contact
// pair on the given day. The returned verdict reports which cap, if any,
// refused the slot; a refusal consumes nothing.
func (c *SendCaps) Reserve(ctx context.Context, orgKey, contactEmail string, day time.Time) (CapVerdict, error) {
	stamp := day.UTC().Format("2006-01-02")
	keys := []string{
		fmt.Sprintf("outreach:daily:%s", stamp),
		fmt.Sprintf("outreach:org:%s:%s", orgKey, stamp),
		fmt.Sprintf("outreach:contact:%s:%s", contactEmail, stamp),
	}

	// Counters outlive their day by an hour so a dispatch straddling
	// midnight still sees them.
	ttl := int(time.Until(day.UTC().Truncate(24*time.Hour).Add(25*time.Hour)) / time.Second)
	if ttl <= 0 {
		ttl = 3600
	}

	res, err := c.script.Run(ctx, c.client, keys,
		c.limits.Daily, c.limits.PerOrg, c.limits.PerContact, ttl).Int()
	if err != nil {
		return CapAllowed, fmt.Errorf("cap reservation: %w", err)
	}
	return CapVerdict(res), nil
}
