// Package style compiles declarative subtitle style descriptions into
// SubStation Alpha (ASS) style markup for the burn-in encoder.
package style

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/subvoc/subvoc/internal/logging"
	"github.com/subvoc/subvoc/pkg/models"
)

// Point sizes for the declarative font-size buckets. The emitted size
// is the bucket value divided by fontScale, which keeps parity with the
// previously tuned default scale.
const (
	fontSizeLarge  = 32.0
	fontSizeMedium = 24.0
	fontSizeSmall  = 16.0
	fontSizeBase   = 24.0
	fontScale      = 1.5
)

// Margins in ASS script units.
const (
	marginHorizontal = 20
	marginTop        = 30
	marginBottom     = 40
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Fonts with dedicated glyph coverage for scripts the default family
// cannot render.
var languageFonts = map[string]string{
	"zh": "Noto Sans CJK SC",
	"ja": "Noto Sans CJK JP",
	"ko": "Noto Sans CJK KR",
	"ar": "Noto Naskh Arabic",
	"th": "Noto Sans Thai",
}

// Compiled holds the derived visual parameters of a subtitle style and
// renders them as an ASS style section.
type Compiled struct {
	FontName      string
	FontSize      float64
	PrimaryColour string // &HAABBGGRR, alpha 00 = opaque
	Bold          int
	Italic        int
	Outline       float64
	Shadow        float64
	Alignment     int
	MarginL       int
	MarginR       int
	MarginV       int
	IsDefault     bool // true when the no-style default was used
}

// Section renders the [V4+ Styles] section the burn-in step splices
// into the converted subtitle file.
func (c *Compiled) Section() string {
	var b strings.Builder
	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	b.WriteString(fmt.Sprintf(
		"Style: Default,%s,%s,%s,&H000000FF,&H00000000,&H00000000,%d,%d,0,0,100,100,0,0,1,%s,%s,%d,%d,%d,%d,1\n",
		c.FontName,
		formatSize(c.FontSize),
		c.PrimaryColour,
		c.Bold,
		c.Italic,
		formatSize(c.Outline),
		formatSize(c.Shadow),
		c.Alignment,
		c.MarginL,
		c.MarginR,
		c.MarginV,
	))
	return b.String()
}

// Compiler translates SubtitleStyle specs into ASS style sections.
type Compiler struct {
	defaultFont string
	log         *logging.Logger
}

// NewCompiler creates a style compiler with the given fallback font family.
func NewCompiler(defaultFont string, log *logging.Logger) *Compiler {
	if defaultFont == "" {
		defaultFont = "Arial"
	}
	return &Compiler{defaultFont: defaultFont, log: log}
}

// Compile derives the visual parameters for the given style spec.
// baseSize is a resolution-derived font-size hint used when no spec is
// supplied (zero means the standard 24-unit base). Compile never fails:
// a malformed spec falls back to the default stylesheet so the burn-in
// step always has something renderable.
func (c *Compiler) Compile(spec *models.SubtitleStyle, language string, baseSize float64) *Compiled {
	if spec == nil {
		return c.defaultStyle(language, baseSize)
	}

	colour, err := convertColor(spec.Color)
	if err != nil {
		c.log.WithField("color", spec.Color).
			WithError(err).
			Warn("Malformed style spec, falling back to default stylesheet")
		return c.defaultStyle(language, baseSize)
	}

	compiled := &Compiled{
		FontName:      c.fontFor(language),
		FontSize:      bucketSize(spec.FontSize) / fontScale,
		PrimaryColour: colour,
		Alignment:     alignmentCode(spec.Position, spec.Alignment),
		MarginL:       marginHorizontal,
		MarginR:       marginHorizontal,
		MarginV:       verticalMargin(spec.Position),
		// Custom styles assume a designed background; no outline or shadow.
		Outline: 0,
		Shadow:  0,
	}

	if spec.FontWeight == "bold" {
		compiled.Bold = 1
	}
	if spec.FontStyle == "italic" {
		compiled.Italic = 1
	}

	return compiled
}

// defaultStyle is the no-spec stylesheet: white text, bottom center,
// outline and shadow enabled for readability against arbitrary
// backgrounds.
func (c *Compiler) defaultStyle(language string, baseSize float64) *Compiled {
	if baseSize <= 0 {
		baseSize = fontSizeBase
	}
	return &Compiled{
		FontName:      c.fontFor(language),
		FontSize:      baseSize / fontScale,
		PrimaryColour: "&H00FFFFFF",
		Alignment:     2,
		MarginL:       marginHorizontal,
		MarginR:       marginHorizontal,
		MarginV:       marginBottom,
		Outline:       1,
		Shadow:        1,
		IsDefault:     true,
	}
}

func (c *Compiler) fontFor(language string) string {
	lang := strings.ToLower(language)
	if i := strings.IndexByte(lang, '-'); i > 0 {
		lang = lang[:i]
	}
	if font, ok := languageFonts[lang]; ok {
		return font
	}
	return c.defaultFont
}

func bucketSize(bucket string) float64 {
	switch bucket {
	case "large":
		return fontSizeLarge
	case "medium":
		return fontSizeMedium
	default:
		return fontSizeSmall
	}
}

// convertColor turns web #RRGGBB into the ASS &HAABBGGRR convention:
// channel order swapped to BBGGRR with a fully opaque alpha byte.
func convertColor(hex string) (string, error) {
	if hex == "" {
		return "&H00FFFFFF", nil
	}
	if !hexColorRe.MatchString(hex) {
		return "", fmt.Errorf("invalid color %q, expected #RRGGBB", hex)
	}

	rr := strings.ToUpper(hex[1:3])
	gg := strings.ToUpper(hex[3:5])
	bb := strings.ToUpper(hex[5:7])

	return "&H00" + bb + gg + rr, nil
}

// alignmentCode maps (position, alignment) onto the numeric-keypad grid:
// top row {7,8,9}, bottom row {1,2,3} for left/center/right. Only top
// and bottom positions are supported, so the middle row is unreachable.
func alignmentCode(position, alignment string) int {
	var base int
	if position == "top" {
		base = 7
	} else {
		base = 1
	}

	switch alignment {
	case "left":
		return base
	case "right":
		return base + 2
	default:
		return base + 1
	}
}

func verticalMargin(position string) int {
	if position == "top" {
		return marginTop
	}
	return marginBottom
}

func formatSize(v float64) string {
	rounded := float64(int(v*100+0.5)) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}
