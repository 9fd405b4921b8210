package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	ImagePNG  ImageFormat = "png"
	ImageJPEG ImageFormat = "jpeg"

	defaultWidth  = 1440 // One column per minute of a day
	defaultHeight = 900
)

type ImageFormat string

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

type Config struct {
	DBPath        string
	SessionID     int64
	OutputFile    string
	Format        ImageFormat
	Width         int
	Height        int
	MinAmplitude  *float64
	MaxAmplitude  *float64
	List          bool // Print stored sessions instead of plotting
	Verbose       bool
	NoAnnotations bool
}

func NewConfig() *Config {
	return &Config{
		Format: ImagePNG,
		Width:  defaultWidth,
		Height: defaultHeight,
	}
}

// NewConfigFromArgs parses command line arguments, without the program name.
func NewConfigFromArgs(args []string) (*Config, error) {
	c := NewConfig()
	flags := pflag.NewFlagSet("vlfplot", pflag.ContinueOnError)

	var imageFormat string
	var minAmplitude, maxAmplitude float64
	flags.StringVar(&c.DBPath, "db", "", "Path to the database file")
	flags.Int64VarP(&c.SessionID, "session", "s", 0, "Session ID, the latest session when omitted")
	flags.StringVarP(&c.OutputFile, "output", "o", "", "Path to the output file, without extension")
	flags.StringVarP(&imageFormat, "format", "f", string(ImagePNG), "Output image format. [png, jpeg]")
	flags.IntVar(&c.Width, "width", defaultWidth, "Plot width in pixels")
	flags.IntVar(&c.Height, "height", defaultHeight, "Plot height in pixels, shared by both panels")
	flags.Float64Var(&minAmplitude, "min-amplitude", 0, "Define a manual lower amplitude bound in dB")
	flags.Float64Var(&maxAmplitude, "max-amplitude", 0, "Define a manual upper amplitude bound in dB")
	flags.BoolVarP(&c.List, "list", "l", false, "List stored sessions and exit")
	flags.BoolVarP(&c.Verbose, "verbose", "v", false, "Enable more verbose output")
	flags.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as time and value scales")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if flags.Changed("min-amplitude") {
		c.MinAmplitude = &minAmplitude
	}
	if flags.Changed("max-amplitude") {
		c.MaxAmplitude = &maxAmplitude
	}

	imageFormat = strings.ToLower(imageFormat)
	if imageFormat == "jpg" {
		imageFormat = string(ImageJPEG)
	}

	var err error
	switch {
	case c.DBPath == "":
		err = errors.New("db path is required")
	case c.List:
	case c.SessionID < 0:
		err = errors.New("session id must not be negative")
	case c.OutputFile == "":
		err = errors.New("output file is required")
	case c.Width < 100 || c.Height < 100:
		err = fmt.Errorf("plot must be at least 100x100 pixels: %dx%d given", c.Width, c.Height)
	case c.MinAmplitude != nil && c.MaxAmplitude != nil && *c.MinAmplitude >= *c.MaxAmplitude:
		err = fmt.Errorf("invalid amplitude range: %g >= %g", *c.MinAmplitude, *c.MaxAmplitude)
	default:
		if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
			err = fmt.Errorf("invalid image format: %s", imageFormat)
		}
	}

	if err != nil {
		flags.PrintDefaults()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	if c.OutputFile != "" {
		c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	}
	return c, nil
}
