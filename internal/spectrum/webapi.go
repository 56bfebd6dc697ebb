// SPDX-License-Identifier: MIT
package spectrum

// Key-enumerated partial-update surface over Settings. A patch applies only
// the keys present; a get returns the full current settings plus the live
// broadcast-server status.

// SettingsKeys lists every key recognized by UpdateSettings.
var SettingsKeys = []string{
	"fftSize", "fftOverlap", "fftWindow",
	"averagingMode", "averagingValue",
	"linear", "ssb", "usb",
	"broadcastAddress", "broadcastPort",
	"refLevel", "powerRange", "decay", "decayDivisor", "histogramStroke",
	"displayGridIntensity", "displayTraceIntensity",
	"displayWaterfall", "invertedWaterfall", "waterfallShare",
	"displayMaxHold", "displayCurrent", "displayHistogram", "displayGrid",
}

// UpdateSettings copies the named fields from patch into s. Unknown keys are
// ignored. The averagingValue key expresses a transform count and is snapped
// onto the 1-2-5 series.
func UpdateSettings(s *Settings, keys []string, patch Settings) {
	for _, key := range keys {
		switch key {
		case "fftSize":
			s.FFTSize = patch.FFTSize
		case "fftOverlap":
			s.FFTOverlap = patch.FFTOverlap
		case "fftWindow":
			s.FFTWindow = patch.FFTWindow
		case "averagingMode":
			s.AveragingMode = patch.AveragingMode
		case "averagingValue":
			s.AveragingIndex = AveragingIndex(patch.AveragingValue, s.AveragingMode)
			s.AveragingValue = AveragingValue(s.AveragingIndex, s.AveragingMode)
		case "linear":
			s.Linear = patch.Linear
		case "ssb":
			s.SSB = patch.SSB
		case "usb":
			s.USB = patch.USB
		case "broadcastAddress":
			s.BroadcastAddress = patch.BroadcastAddress
		case "broadcastPort":
			s.BroadcastPort = patch.BroadcastPort
		case "refLevel":
			s.RefLevel = patch.RefLevel
		case "powerRange":
			s.PowerRange = patch.PowerRange
		case "decay":
			s.Decay = patch.Decay
		case "decayDivisor":
			s.DecayDivisor = patch.DecayDivisor
		case "histogramStroke":
			s.HistogramStroke = patch.HistogramStroke
		case "displayGridIntensity":
			s.DisplayGridIntensity = patch.DisplayGridIntensity
		case "displayTraceIntensity":
			s.DisplayTraceIntensity = patch.DisplayTraceIntensity
		case "displayWaterfall":
			s.DisplayWaterfall = patch.DisplayWaterfall
		case "invertedWaterfall":
			s.InvertedWaterfall = patch.InvertedWaterfall
		case "waterfallShare":
			s.WaterfallShare = patch.WaterfallShare
		case "displayMaxHold":
			s.DisplayMaxHold = patch.DisplayMaxHold
		case "displayCurrent":
			s.DisplayCurrent = patch.DisplayCurrent
		case "displayHistogram":
			s.DisplayHistogram = patch.DisplayHistogram
		case "displayGrid":
			s.DisplayGrid = patch.DisplayGrid
		}
	}
}

// GetSettings returns a copy of the current settings.
func (a *Analyzer) GetSettings() Settings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.settings
}

// SettingsPutPatch merges the named patch keys into the current settings and
// queues the result for application. The merged settings are returned so the
// caller can echo the effective request.
func (a *Analyzer) SettingsPutPatch(keys []string, patch Settings, force bool) Settings {
	s := a.GetSettings()
	UpdateSettings(&s, keys, patch)
	a.queue.Push(MsgConfigure{Settings: s, Force: force})
	return s
}

// ServerReport returns the live broadcast-server status: open/closed, the
// listening endpoint and the connected peer list.
func (a *Analyzer) ServerReport() ServerStatus {
	a.mu.Lock()
	b := a.broadcast
	a.mu.Unlock()
	if b == nil {
		return ServerStatus{}
	}
	return b.Status()
}

// OpenBroadcast queues a broadcast-listener open request. Idempotent.
func (a *Analyzer) OpenBroadcast() {
	a.queue.Push(MsgConfigureBroadcastOpenClose{Open: true})
}

// CloseBroadcast queues a broadcast-listener close request. Idempotent.
func (a *Analyzer) CloseBroadcast() {
	a.queue.Push(MsgConfigureBroadcastOpenClose{Open: false})
}
