package user_agent

import (
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

// Device types reported by ParseUserAgent.
const (
	DeviceDesktop = "desktop"
	DeviceMobile  = "mobile"
	DeviceTablet  = "tablet"
	DeviceUnknown = "unknown"
)

type UserAgent struct {
	UserAgent string
	Device    string
	Bot       bool
	BotName   string
}

//go:embed rules/devices.yml
var rulesFS embed.FS

// BotRule identifies crawlers and automated clients.
type BotRule struct {
	Regex string `yaml:"regex"`
	Name  string `yaml:"name"`
}

// DeviceRule maps a user agent pattern to a device type.
type DeviceRule struct {
	Regex  string `yaml:"regex"`
	Device string `yaml:"device"`
}

type ruleSet struct {
	Bots    []BotRule    `yaml:"bots"`
	Devices []DeviceRule `yaml:"devices"`
}

// Compiled regex cache
type RegexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

func newRegexCache() *RegexCache {
	return &RegexCache{
		compiled: make(map[string]*pcre.Regexp),
	}
}

func (rc *RegexCache) get(pattern string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if regex, exists := rc.compiled[pattern]; exists {
		rc.mutex.RUnlock()
		return regex, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if regex, exists := rc.compiled[pattern]; exists {
		return regex, nil
	}

	regex, err := pcre.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	rc.compiled[pattern] = regex
	return regex, nil
}

func (rc *RegexCache) match(pattern, s string) bool {
	regex, err := rc.get(pattern)
	if err != nil {
		slog.Default().Warn("Skipping invalid user agent rule",
			slog.String("regex", pattern),
			slog.Any("error", err))
		return false
	}
	return regex.MatchString(s)
}

// Parser classifies user agents with a rule set.
type Parser struct {
	rules      ruleSet
	regexCache *RegexCache
}

// NewParser builds a parser from YAML rules.
func NewParser(data []byte) (*Parser, error) {
	var rules ruleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse user agent rules: %w", err)
	}
	return &Parser{rules: rules, regexCache: newRegexCache()}, nil
}

var (
	defaultParser *Parser
	once          sync.Once
)

func getParser() *Parser {
	once.Do(func() {
		data, err := rulesFS.ReadFile("rules/devices.yml")
		if err == nil {
			defaultParser, err = NewParser(data)
		}
		if err != nil {
			slog.Default().Error("Failed to load user agent rules", slog.Any("error", err))
			defaultParser = &Parser{regexCache: newRegexCache()}
		}
	})
	return defaultParser
}

// Parse classifies one user agent. Bots are checked first; anything that
// matches no device rule is a desktop.
func (p *Parser) Parse(userAgent string) UserAgent {
	ua := strings.TrimSpace(userAgent)
	if ua == "" {
		return UserAgent{UserAgent: userAgent, Device: DeviceUnknown}
	}

	for _, bot := range p.rules.Bots {
		if p.regexCache.match(bot.Regex, ua) {
			return UserAgent{UserAgent: userAgent, Device: DeviceUnknown, Bot: true, BotName: bot.Name}
		}
	}

	for _, rule := range p.rules.Devices {
		if p.regexCache.match(rule.Regex, ua) {
			return UserAgent{UserAgent: userAgent, Device: rule.Device}
		}
	}

	return UserAgent{UserAgent: userAgent, Device: DeviceDesktop}
}

// ParseUserAgent classifies a user agent with the embedded rules.
func ParseUserAgent(userAgent string) UserAgent {
	return getParser().Parse(userAgent)
}
