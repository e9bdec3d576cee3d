//go:build production

package auth

// DevStubAvailable reports whether this build contains the development stub
const DevStubAvailable = false

func newDevCodes() (CodeProvider, error) {
	return nil, ErrDevModeUnavailable
}
