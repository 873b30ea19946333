// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Capture constants
const (
	// DefaultJPEGQuality is the still encoding quality (0.8 of the lossy codec range)
	DefaultJPEGQuality = 80

	// DefaultCameraStartTimeout bounds how long acquisition waits for the first frame
	DefaultCameraStartTimeout = 10 * time.Second

	// MaxFrameSize is the largest single MJPEG frame accepted from the camera pipe
	MaxFrameSize = 32 << 20

	// InitialFrameBuffer is the starting buffer for the frame splitter
	InitialFrameBuffer = 1 << 20

	// PreviewMaxSize bounds the longer side of live preview frames
	PreviewMaxSize = 640
)

// Kiosk constants
const (
	// DefaultPrefillTTL is how long a matched visitor stays in the transfer slot
	DefaultPrefillTTL = 10 * time.Minute

	// OTPResendCooldown gates resending a one-time password
	OTPResendCooldown = 60 * time.Second

	// OTPLength is the number of digits in a one-time password
	OTPLength = 6

	// MinMobileLength is the shortest mobile number accepted for OTP delivery
	MinMobileLength = 10

	// ClockInterval is the refresh interval of the kiosk header clock
	ClockInterval = time.Second
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// Upload constants
const (
	// FaceImageField is the multipart field carrying the captured face
	FaceImageField = "face_image"

	// FaceImageFilename is the file name sent with the captured face
	FaceImageFilename = "face.jpg"

	// MaxRequestBody caps JSON bodies accepted by the local kiosk API (1MB)
	MaxRequestBody = 1 << 20
)
