package ui

// Config contains window/input/audio related settings for the windowed
// front-end.
type Config struct {
	Title string // window title
	Scale int    // integer upscaling factor
	Trace bool   // set by the -trace flag; the front-end does not read it

	AudioStereo     bool // true stereo output; false folds to mono
	AudioLowLatency bool // hard-cap buffering for minimal latency
	AudioBufferMs   int  // defaulted to 60; not read (applyPlayerBufferSize uses 20 or 40 ms)
}

// Defaults fills missing fields with reasonable defaults.
func (c *Config) Defaults() {
	if c.Title == "" {
		c.Title = "gbemu"
	}
	if c.Scale <= 0 {
		c.Scale = 3
	}
	if c.AudioBufferMs <= 0 {
		c.AudioBufferMs = 60
	}
}
