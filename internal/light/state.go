// Package light implements the virtual composite light: a fixed set of
// member devices observed and controlled as one light. It holds the
// membership topology, the state reduction engine and the command
// dispatcher, plus the collaborator contracts they depend on.
package light

// MemberID identifies one controllable member device. Opaque to this
// package; supplied by configuration and fixed for the composite lifetime.
type MemberID string

// Power is the reported power state of a member device.
type Power string

const (
	PowerOn          Power = "on"
	PowerOff         Power = "off"
	PowerUnavailable Power = "unavailable"
)

// Attribute keys reported by members and forwarded in commands.
const (
	AttrBrightness        = "brightness"
	AttrHSColor           = "hs_color"
	AttrColorTemp         = "color_temp"
	AttrWhiteValue        = "white_value"
	AttrEffect            = "effect"
	AttrEffectList        = "effect_list"
	AttrMinMireds         = "min_mireds"
	AttrMaxMireds         = "max_mireds"
	AttrSupportedFeatures = "supported_features"
	AttrTransition        = "transition"
	AttrFlash             = "flash"
)

// Feature bits a light may advertise in its supported_features mask.
const (
	FeatureBrightness uint32 = 1
	FeatureColorTemp  uint32 = 2
	FeatureEffect     uint32 = 4
	FeatureFlash      uint32 = 8
	FeatureColor      uint32 = 16
	FeatureTransition uint32 = 32
	FeatureWhiteValue uint32 = 128
)

// FeatureMask is the full capability set a composite may advertise.
// Member-reported bits outside this mask are never exposed, even if a
// member grows capabilities the composite does not model.
const FeatureMask = FeatureBrightness | FeatureColorTemp | FeatureEffect |
	FeatureFlash | FeatureColor | FeatureTransition | FeatureWhiteValue

// Mireds bounds reported when no member defines them.
const (
	DefaultMinMireds = 154
	DefaultMaxMireds = 500
)

// Attributes is the attribute map of a device state or a command payload.
// Values are kept loosely typed; the reduction engine normalizes them and
// silently skips anything it cannot interpret.
type Attributes map[string]any

// HS is a hue/saturation color pair.
type HS struct {
	Hue float64
	Sat float64
}

// DeviceState is an external snapshot of one member device. The engine
// only reads it, never mutates it.
type DeviceState struct {
	ID         MemberID
	Power      Power
	Attributes Attributes
}

// CompositeState is the reduced state of the whole composite. It is always
// replaced wholesale on recompute, never patched field by field.
type CompositeState struct {
	IsOn      bool
	PrimaryOn bool
	Available bool

	Brightness *int
	HSColor    *HS
	ColorTemp  *int
	MinMireds  int
	MaxMireds  int
	WhiteValue *int

	Effect     string
	EffectList []string

	SupportedFeatures uint32
}

// NewCompositeState returns the initial state of a freshly created
// composite: off, unavailable, default mireds bounds, no features.
func NewCompositeState() CompositeState {
	return CompositeState{
		MinMireds: DefaultMinMireds,
		MaxMireds: DefaultMaxMireds,
	}
}
