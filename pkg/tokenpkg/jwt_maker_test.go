package tokenpkg

import (
	"testing"
	"time"

	"github.com/go-petr/game-market/pkg/randompkg"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestNewJWTMaker(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		keySize int
		wantErr string
	}{
		{
			name:    "MinimalKey",
			keySize: minSecretKeySize,
		},
		{
			name:    "LongerKey",
			keySize: minSecretKeySize + 32,
		},
		{
			name:    "KeyOneByteShort",
			keySize: minSecretKeySize - 1,
			wantErr: "invalid key size: must be at least 32 characters",
		},
		{
			name:    "EmptyKey",
			keySize: 0,
			wantErr: "invalid key size: must be at least 32 characters",
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			maker, err := NewJWTMaker(randompkg.String(tc.keySize))

			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("NewJWTMaker() returned error: %v", err)
				}

				if maker == nil {
					t.Error("NewJWTMaker() returned nil maker")
				}

				return
			}

			if err == nil || err.Error() != tc.wantErr {
				t.Errorf("NewJWTMaker() error = %v, want %q", err, tc.wantErr)
			}

			if maker != nil {
				t.Errorf("NewJWTMaker() maker = %+v, want nil", maker)
			}
		})
	}
}

func TestJWTMakerRoundTrip(t *testing.T) {
	t.Parallel()

	maker, err := NewJWTMaker(randompkg.String(minSecretKeySize))
	if err != nil {
		t.Fatalf("NewJWTMaker() returned error: %v", err)
	}

	username := randompkg.Owner()

	token, issued, err := maker.CreateToken(username, time.Hour)
	if err != nil {
		t.Fatalf("maker.CreateToken(%v) returned error: %v", username, err)
	}

	verified, err := maker.VerifyToken(token)
	if err != nil {
		t.Fatalf("maker.VerifyToken() returned error: %v", err)
	}

	// The payload read back from the token must be the payload that was signed.
	if diff := cmp.Diff(issued, verified, cmpopts.EquateApproxTime(time.Second)); diff != "" {
		t.Errorf("verified payload mismatch (-issued +verified):\n%v", diff)
	}

	if got, want := verified.ExpiredAt.Sub(verified.IssuedAt), time.Hour; got != want {
		t.Errorf("token lifetime = %v, want %v", got, want)
	}
}

func TestJWTMakerVerify(t *testing.T) {
	t.Parallel()

	maker, err := NewJWTMaker(randompkg.String(minSecretKeySize))
	if err != nil {
		t.Fatalf("NewJWTMaker() returned error: %v", err)
	}

	testCases := []struct {
		name    string
		token   func(t *testing.T) string
		wantErr error
	}{
		{
			name: "Expired",
			token: func(t *testing.T) string {
				token, _, err := maker.CreateToken(randompkg.Owner(), -time.Minute)
				if err != nil {
					t.Fatalf("maker.CreateToken() returned error: %v", err)
				}

				return token
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "SignedWithAnotherKey",
			token: func(t *testing.T) string {
				other, err := NewJWTMaker(randompkg.String(minSecretKeySize))
				if err != nil {
					t.Fatalf("NewJWTMaker() returned error: %v", err)
				}

				token, _, err := other.CreateToken(randompkg.Owner(), time.Minute)
				if err != nil {
					t.Fatalf("other.CreateToken() returned error: %v", err)
				}

				return token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "SignatureStrippedAlgNone",
			token: func(t *testing.T) string {
				payload, err := NewPayload(randompkg.Owner(), time.Minute)
				if err != nil {
					t.Fatalf("NewPayload() returned error: %v", err)
				}

				unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, payload)

				token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
				if err != nil {
					t.Fatalf("unsigned.SignedString() returned error: %v", err)
				}

				return token
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "NotAToken",
			token: func(t *testing.T) string {
				return "definitely.not.jwt"
			},
			wantErr: ErrInvalidToken,
		},
	}

	for _, tc := range testCases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			payload, err := maker.VerifyToken(tc.token(t))
			if err != tc.wantErr {
				t.Errorf("maker.VerifyToken() error = %v, want %v", err, tc.wantErr)
			}

			if payload != nil {
				t.Errorf("maker.VerifyToken() payload = %+v, want nil", payload)
			}
		})
	}
}
