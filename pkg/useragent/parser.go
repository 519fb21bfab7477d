package useragent

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/ua-parser/uap-go/uaparser"
	"go.uber.org/zap"
)

// Parser classifies User-Agent strings into the visit enrichment fields.
type Parser struct {
	parser *uaparser.Parser
	log    *zap.Logger
}

// ClientInfo represents parsed client information attached to a visit.
type ClientInfo struct {
	DeviceType string // mobile, desktop, tablet, bot, unknown
	Browser    string // Chrome, Firefox, Safari, etc.
	OS         string // Windows, iOS, Android, etc.
}

var (
	globalParser *Parser
	once         sync.Once
)

// NewParser creates a User-Agent parser from a uap-core regexes file.
func NewParser(regexFilePath string, log *zap.Logger) (*Parser, error) {
	regexBytes, err := os.ReadFile(regexFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read regexes file: %w", err)
	}

	parser, err := uaparser.NewFromBytes(regexBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create User-Agent parser: %w", err)
	}

	log.Info("User-Agent parser initialized", zap.String("regexes_file", regexFilePath))

	return &Parser{
		parser: parser,
		log:    log,
	}, nil
}

// InitGlobalParser initializes the global parser instance.
func InitGlobalParser(regexFilePath string, log *zap.Logger) error {
	var err error
	once.Do(func() {
		globalParser, err = NewParser(regexFilePath, log)
	})
	return err
}

// Classify parses a User-Agent through the global parser, falling back to
// substring heuristics when the parser is not initialized.
func Classify(userAgent string) ClientInfo {
	if globalParser != nil {
		return globalParser.Classify(userAgent)
	}
	return fallbackClassify(userAgent)
}

// Classify parses a User-Agent string into client information.
func (p *Parser) Classify(userAgent string) ClientInfo {
	if userAgent == "" {
		return ClientInfo{DeviceType: "unknown", Browser: "unknown", OS: "unknown"}
	}

	client := p.parser.Parse(userAgent)

	info := ClientInfo{
		Browser: orUnknown(client.UserAgent.Family),
		OS:      orUnknown(client.Os.Family),
	}
	info.DeviceType = deviceType(client, userAgent)

	return info
}

func deviceType(client *uaparser.Client, userAgent string) string {
	if isBot(client.UserAgent.Family, userAgent) {
		return "bot"
	}

	ua := strings.ToLower(userAgent)
	osFamily := client.Os.Family

	switch {
	case strings.Contains(osFamily, "iOS"):
		if strings.Contains(ua, "ipad") {
			return "tablet"
		}
		return "mobile"
	case strings.Contains(osFamily, "Android"):
		// Android tablets typically omit "Mobile" from the User-Agent
		if !strings.Contains(ua, "mobile") {
			return "tablet"
		}
		return "mobile"
	}

	return fallbackDeviceType(ua)
}

func isBot(uaFamily, userAgent string) bool {
	botIndicators := []string{
		"googlebot", "bingbot", "slurp", "duckduckbot", "baiduspider",
		"yandexbot", "facebookexternalhit", "twitterbot", "linkedinbot",
		"bot", "crawler", "spider", "scraper",
	}

	family := strings.ToLower(uaFamily)
	ua := strings.ToLower(userAgent)
	for _, indicator := range botIndicators {
		if strings.Contains(family, indicator) || strings.Contains(ua, indicator) {
			return true
		}
	}
	return false
}

// fallbackClassify is the no-parser path: coarse substring heuristics.
func fallbackClassify(userAgent string) ClientInfo {
	if userAgent == "" {
		return ClientInfo{DeviceType: "unknown", Browser: "unknown", OS: "unknown"}
	}

	ua := strings.ToLower(userAgent)
	info := ClientInfo{
		DeviceType: fallbackDeviceType(ua),
		Browser:    fallbackBrowser(ua),
		OS:         fallbackOS(ua),
	}
	if isBot("", userAgent) {
		info.DeviceType = "bot"
	}
	return info
}

func fallbackDeviceType(ua string) string {
	mobileKeywords := []string{
		"mobile", "android", "iphone", "ipod", "blackberry",
		"windows phone", "webos", "opera mini",
	}
	for _, keyword := range mobileKeywords {
		if strings.Contains(ua, keyword) {
			return "mobile"
		}
	}

	tabletKeywords := []string{"tablet", "ipad", "kindle", "silk", "playbook"}
	for _, keyword := range tabletKeywords {
		if strings.Contains(ua, keyword) {
			return "tablet"
		}
	}

	return "desktop"
}

func fallbackBrowser(ua string) string {
	switch {
	case strings.Contains(ua, "edg/"):
		return "Edge"
	case strings.Contains(ua, "opr/") || strings.Contains(ua, "opera"):
		return "Opera"
	case strings.Contains(ua, "chrome"):
		return "Chrome"
	case strings.Contains(ua, "firefox"):
		return "Firefox"
	case strings.Contains(ua, "safari"):
		return "Safari"
	default:
		return "unknown"
	}
}

func fallbackOS(ua string) string {
	switch {
	case strings.Contains(ua, "windows"):
		return "Windows"
	case strings.Contains(ua, "android"):
		return "Android"
	case strings.Contains(ua, "iphone"), strings.Contains(ua, "ipad"), strings.Contains(ua, "ios"):
		return "iOS"
	case strings.Contains(ua, "mac os"):
		return "Mac OS X"
	case strings.Contains(ua, "linux"):
		return "Linux"
	default:
		return "unknown"
	}
}

func orUnknown(s string) string {
	if s == "" || s == "Other" {
		return "unknown"
	}
	return s
}
