package capture

import "errors"

// GenericContainer is the last-resort container when no preferred codec is supported.
const GenericContainer = "video/webm"

// mimePreference orders codecs most-compressed-with-audio first.
var mimePreference = []string{
	"video/webm;codecs=vp9,opus",
	"video/webm;codecs=vp8,opus",
	"video/webm;codecs=h264,opus",
	GenericContainer,
}

// ErrNoSupportedCodec indicates the capture layer supports none of the preferred containers.
var ErrNoSupportedCodec = errors.New("no supported capture codec")

// NegotiateMimeType picks the first supported entry of the fixed preference
// order. The supported predicate is the capture layer's capability probe.
func NegotiateMimeType(supported func(mimeType string) bool) (string, error) {
	if supported == nil {
		return GenericContainer, nil
	}

	for _, candidate := range mimePreference {
		if supported(candidate) {
			return candidate, nil
		}
	}

	return "", ErrNoSupportedCodec
}
