// Package engine orchestrates the face enrollment and verification pipeline:
// decrypt the uploaded selfie if needed, normalize it, extract an embedding,
// then store it (registration) or distance-compare it against the stored one
// and issue a session token (authentication).
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/faceauth/pwd-manager/api/models"
	"github.com/faceauth/pwd-manager/apperr"
	"github.com/faceauth/pwd-manager/core/crypto"
	"github.com/faceauth/pwd-manager/core/envelope"
	"github.com/faceauth/pwd-manager/core/face"
	"github.com/faceauth/pwd-manager/core/imageproc"
)

// FaceMatchThreshold is the Euclidean distance above which two embeddings are
// considered different people. Lower is more similar; the cutoff is a
// security/usability tradeoff, not derived from data. The failure condition
// is strictly greater-than: a distance exactly at the threshold matches.
const FaceMatchThreshold = 0.6

const (
	msgSelfieRequired = "selfie image is required"
	msgNoFace         = "no face detected in the image, ensure your face is clearly visible and well-lit"
	msgDecryptFailed  = "failed to decrypt image data"
	msgFaceMismatch   = "face verification failed"
	msgNoStoredFace   = "no registered face found for this user"
)

// UserStore is the persistence collaborator. Implementations translate a
// unique-constraint violation on email into an apperr validation failure.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
}

// Extractor yields a fixed-length embedding for the most prominent face in a
// raster, or face.ErrNoFaceDetected.
type Extractor interface {
	Extract(img image.Image) (face.Descriptor, error)
}

// TokenIssuer signs session claims for an authenticated identity.
type TokenIssuer interface {
	Sign(userID int64, email string) (string, error)
}

// Upload is a selfie payload tagged as plaintext or client-encrypted at the
// ingestion boundary.
type Upload struct {
	data      []byte
	encrypted bool
}

func PlainUpload(data []byte) Upload     { return Upload{data: data} }
func EncryptedUpload(data []byte) Upload { return Upload{data: data, encrypted: true} }

func (u Upload) Empty() bool { return len(u.data) == 0 }

// AuthResult is the outcome of a successful face authentication.
type AuthResult struct {
	User  UserRef `json:"user"`
	Token string  `json:"token"`
}

type UserRef struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type Engine struct {
	users     UserStore
	extractor Extractor
	cipher    *crypto.Cipher
	opener    *envelope.Opener
	tokens    TokenIssuer
	log       *slog.Logger
}

func New(users UserStore, extractor Extractor, cipher *crypto.Cipher, opener *envelope.Opener, tokens TokenIssuer, log *slog.Logger) (*Engine, error) {
	if users == nil || extractor == nil || cipher == nil || opener == nil || tokens == nil {
		return nil, errors.New("engine: all collaborators are required")
	}
	return &Engine{
		users:     users,
		extractor: extractor,
		cipher:    cipher,
		opener:    opener,
		tokens:    tokens,
		log:       log,
	}, nil
}

// Register enrolls a new identity: it extracts an embedding from the uploaded
// selfie and persists the user with it. The returned user never carries the
// embedding or any image bytes.
func (e *Engine) Register(ctx context.Context, email string, upload Upload) (*models.User, error) {
	if upload.Empty() {
		return nil, apperr.ValidationFailed(msgSelfieRequired)
	}

	buf := upload.data
	if upload.encrypted {
		decrypted, err := e.opener.Open(buf, e.cipher.TempEncryptionKey(email))
		if err != nil {
			return nil, apperr.ValidationFailed(msgDecryptFailed)
		}
		buf = decrypted
	}

	descriptor, err := e.embed(buf)
	if err != nil {
		return nil, err
	}

	created, err := e.users.Create(ctx, &models.User{Email: email, FaceDescriptor: descriptor})
	if err != nil {
		return nil, err
	}
	e.log.Info("registered user with face embedding", "user_id", created.ID)

	// The response must never include the embedding.
	created.FaceDescriptor = nil
	return created, nil
}

// Authenticate verifies a claimed identity against its stored embedding and
// issues a signed session token when the live embedding is close enough.
func (e *Engine) Authenticate(ctx context.Context, email string, upload Upload) (*AuthResult, error) {
	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !user.HasFace() {
		return nil, apperr.ValidationFailed(msgNoStoredFace)
	}
	if upload.Empty() {
		return nil, apperr.ValidationFailed(msgSelfieRequired)
	}

	buf := upload.data
	if upload.encrypted {
		// The client may have encrypted with either key depending on UI
		// state; the user-specific key is tried first, then the
		// registration-time temporary key.
		decrypted, err := e.opener.Open(buf,
			e.cipher.UserEncryptionKey(user.ID, user.Email),
			e.cipher.TempEncryptionKey(user.Email),
		)
		if err != nil {
			return nil, apperr.ValidationFailed(msgDecryptFailed)
		}
		buf = decrypted
	}

	live, err := e.embed(buf)
	if err != nil {
		return nil, err
	}

	distance := EuclideanDistance(user.FaceDescriptor, live)
	if !withinThreshold(distance) {
		e.log.Info("face verification rejected", "user_id", user.ID, "distance", distance)
		return nil, apperr.ValidationFailed(msgFaceMismatch)
	}

	token, err := e.tokens.Sign(user.ID, user.Email)
	if err != nil {
		return nil, apperr.Internal("signing session token", err)
	}

	return &AuthResult{
		User:  UserRef{ID: user.ID, Email: user.Email},
		Token: token,
	}, nil
}

// embed runs the normalize-then-extract half of the pipeline, mapping the
// expected outcomes to validation failures and everything else to internal
// faults.
func (e *Engine) embed(buf []byte) (face.Descriptor, error) {
	img, err := imageproc.Normalize(buf, imageproc.DefaultMaxDim)
	if err != nil {
		if errors.Is(err, imageproc.ErrInvalidImage) {
			return nil, apperr.ValidationFailed(fmt.Sprintf("could not process image: %v", err))
		}
		return nil, apperr.Internal("normalizing image", err)
	}

	descriptor, err := e.extractor.Extract(img)
	if err != nil {
		if errors.Is(err, face.ErrNoFaceDetected) {
			return nil, apperr.ValidationFailed(msgNoFace)
		}
		return nil, apperr.Internal("extracting face embedding", err)
	}
	return descriptor, nil
}

// EuclideanDistance computes the straight-line distance between two
// embeddings. Mismatched lengths are incomparable and yield +Inf.
func EuclideanDistance(a, b face.Descriptor) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func withinThreshold(distance float64) bool {
	return distance <= FaceMatchThreshold
}
