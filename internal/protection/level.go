package protection

// Level is the escalating protection level of a link. The numeric values
// match the persisted protection_level column; 1 and 2 are severities only
// and never become a level.
type Level int

const (
	LevelNormal            Level = 0
	LevelCaptcha           Level = 3 // visitors must pass a captcha
	LevelTemporaryDisabled Level = 4 // link blocked until the escalation window expires
	LevelDisabled          Level = 5 // link blocked until manual recovery
)

// LevelForSeverity maps a detection severity to the protection level it
// escalates to. Severities below 3 never raise the level.
func LevelForSeverity(severity int) Level {
	switch {
	case severity >= 5:
		return LevelDisabled
	case severity == 4:
		return LevelTemporaryDisabled
	case severity == 3:
		return LevelCaptcha
	default:
		return LevelNormal
	}
}

func (l Level) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelCaptcha:
		return "captcha_required"
	case LevelTemporaryDisabled:
		return "temporary_disabled"
	case LevelDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Status is the read-path answer to "may this link serve clicks right now".
type Status string

const (
	StatusNotFound          Status = "not_found"
	StatusDisabled          Status = "disabled"
	StatusTemporaryDisabled Status = "temporary_disabled"
	StatusCaptchaRequired   Status = "captcha_required"
	StatusNormal            Status = "normal"
)

// Blocked reports whether the status prevents serving the click.
func (s Status) Blocked() bool {
	return s != StatusNormal
}
