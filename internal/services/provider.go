package services

import "context"

// Provider is the slice of the generative-AI client the services depend on.
// *gemini.Client satisfies it; tests inject fakes.
type Provider interface {
	// GenerateImage returns image bytes for a prompt. inputImage, when
	// non-nil, is supplied as edit context.
	GenerateImage(ctx context.Context, prompt string, inputImage []byte) ([]byte, error)
	// GenerateText returns a plain-text completion. image, when non-nil, is
	// attached to the request so the model can look at it.
	GenerateText(ctx context.Context, prompt string, image []byte) (string, error)
}
