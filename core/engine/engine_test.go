package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faceauth/pwd-manager/api/models"
	"github.com/faceauth/pwd-manager/apperr"
	"github.com/faceauth/pwd-manager/core/crypto"
	"github.com/faceauth/pwd-manager/core/envelope"
	"github.com/faceauth/pwd-manager/core/face"
)

type stubStore struct {
	byEmail map[string]*models.User
	nextID  int64
}

func newStubStore() *stubStore {
	return &stubStore{byEmail: map[string]*models.User{}, nextID: 1}
}

func (s *stubStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, apperr.NotFound(fmt.Sprintf("user %s not found", email))
	}
	cp := *u
	return &cp, nil
}

func (s *stubStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if _, ok := s.byEmail[user.Email]; ok {
		return nil, apperr.ValidationFailed("a user with this email already exists")
	}
	stored := *user
	stored.ID = s.nextID
	s.nextID++
	s.byEmail[user.Email] = &stored
	cp := stored
	return &cp, nil
}

type stubExtractor struct {
	descriptor face.Descriptor
	err        error
}

func (s *stubExtractor) Extract(img image.Image) (face.Descriptor, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.descriptor, nil
}

type stubIssuer struct{ err error }

func (s *stubIssuer) Sign(userID int64, email string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return fmt.Sprintf("token-for-%d", userID), nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func selfieJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 320, 240))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func descriptorWithFirst(v float32) face.Descriptor {
	d := make(face.Descriptor, face.DescriptorLen)
	d[0] = v
	return d
}

func newTestEngine(t *testing.T, store UserStore, ext Extractor) (*Engine, *crypto.Cipher) {
	t.Helper()
	c := crypto.New("salt", "app-secret")
	opener := envelope.NewOpener(c, discardLogger())
	e, err := New(store, ext, c, opener, &stubIssuer{}, discardLogger())
	require.NoError(t, err)
	return e, c
}

func encryptSelfie(t *testing.T, c *crypto.Cipher, selfie []byte, key string) []byte {
	t.Helper()
	ciphertext := c.Encrypt(base64.StdEncoding.EncodeToString(selfie), key)
	raw, err := json.Marshal(map[string]string{"data": ciphertext})
	require.NoError(t, err)
	return raw
}

func TestRegister_StoresEmbeddingOfExpectedLength(t *testing.T) {
	store := newStubStore()
	e, _ := newTestEngine(t, store, &stubExtractor{descriptor: descriptorWithFirst(0.5)})

	user, err := e.Register(context.Background(), "a@x.com", PlainUpload(selfieJPEG(t)))

	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Nil(t, user.FaceDescriptor, "response must not carry the embedding")

	stored := store.byEmail["a@x.com"]
	require.NotNil(t, stored)
	assert.Len(t, stored.FaceDescriptor, face.DescriptorLen)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newStubStore()
	e, _ := newTestEngine(t, store, &stubExtractor{descriptor: descriptorWithFirst(0.5)})

	_, err := e.Register(context.Background(), "a@x.com", PlainUpload(selfieJPEG(t)))
	require.NoError(t, err)

	_, err = e.Register(context.Background(), "a@x.com", PlainUpload(selfieJPEG(t)))
	assert.True(t, apperr.IsValidationFailed(err))
}

func TestRegister_MissingImage(t *testing.T) {
	e, _ := newTestEngine(t, newStubStore(), &stubExtractor{})

	_, err := e.Register(context.Background(), "a@x.com", PlainUpload(nil))

	assert.True(t, apperr.IsValidationFailed(err))
}

func TestRegister_EncryptedUpload(t *testing.T) {
	store := newStubStore()
	e, c := newTestEngine(t, store, &stubExtractor{descriptor: descriptorWithFirst(0.5)})

	payload := encryptSelfie(t, c, selfieJPEG(t), c.TempEncryptionKey("a@x.com"))
	_, err := e.Register(context.Background(), "a@x.com", EncryptedUpload(payload))

	require.NoError(t, err)
	assert.NotNil(t, store.byEmail["a@x.com"])
}

func TestRegister_EncryptedUploadWrongKey(t *testing.T) {
	e, c := newTestEngine(t, newStubStore(), &stubExtractor{descriptor: descriptorWithFirst(0.5)})

	payload := encryptSelfie(t, c, selfieJPEG(t), "some-unrelated-key")
	_, err := e.Register(context.Background(), "a@x.com", EncryptedUpload(payload))

	assert.True(t, apperr.IsValidationFailed(err))
}

func TestRegister_NoFaceIsValidationNotInternal(t *testing.T) {
	e, _ := newTestEngine(t, newStubStore(), &stubExtractor{err: face.ErrNoFaceDetected})

	_, err := e.Register(context.Background(), "a@x.com", PlainUpload(selfieJPEG(t)))

	assert.Equal(t, apperr.KindValidationFailed, apperr.KindOf(err))
}

func TestRegister_UndecodableImage(t *testing.T) {
	e, _ := newTestEngine(t, newStubStore(), &stubExtractor{})

	_, err := e.Register(context.Background(), "a@x.com", PlainUpload([]byte("not an image")))

	assert.True(t, apperr.IsValidationFailed(err))
}

func registeredEngine(t *testing.T, ext Extractor) (*Engine, *crypto.Cipher, *stubStore) {
	t.Helper()
	store := newStubStore()
	store.byEmail["a@x.com"] = &models.User{
		ID:             1,
		Email:          "a@x.com",
		FaceDescriptor: descriptorWithFirst(0), // all zeros
	}
	store.nextID = 2
	e, c := newTestEngine(t, store, ext)
	return e, c, store
}

func TestAuthenticate_UnknownEmail(t *testing.T) {
	e, _ := newTestEngine(t, newStubStore(), &stubExtractor{})

	_, err := e.Authenticate(context.Background(), "nobody@x.com", PlainUpload(selfieJPEG(t)))

	assert.True(t, apperr.IsNotFound(err))
}

func TestAuthenticate_NoStoredFace(t *testing.T) {
	store := newStubStore()
	store.byEmail["a@x.com"] = &models.User{ID: 1, Email: "a@x.com"}
	e, _ := newTestEngine(t, store, &stubExtractor{})

	_, err := e.Authenticate(context.Background(), "a@x.com", PlainUpload(selfieJPEG(t)))

	assert.True(t, apperr.IsValidationFailed(err))
}

func TestAuthenticate_MissingImage(t *testing.T) {
	e, _, _ := registeredEngine(t, &stubExtractor{})

	_, err := e.Authenticate(context.Background(), "a@x.com", PlainUpload(nil))

	assert.True(t, apperr.IsValidationFailed(err))
}

func TestAuthenticate_IdenticalEmbeddingSucceeds(t *testing.T) {
	// Live embedding identical to the stored one: distance 0.
	e, _, _ := registeredEngine(t, &stubExtractor{descriptor: descriptorWithFirst(0)})

	res, err := e.Authenticate(context.Background(), "a@x.com", PlainUpload(selfieJPEG(t)))

	require.NoError(t, err)
	assert.Equal(t, int64(1), res.User.ID)
	assert.Equal(t, "a@x.com", res.User.Email)
	assert.Equal(t, "token-for-1", res.Token)
}

func TestAuthenticate_CloseEmbeddingSucceeds(t *testing.T) {
	// Distance 0.5 is under the threshold.
	e, _, _ := registeredEngine(t, &stubExtractor{descriptor: descriptorWithFirst(0.5)})

	_, err := e.Authenticate(context.Background(), "a@x.com", PlainUpload(selfieJPEG(t)))

	assert.NoError(t, err)
}

func TestAuthenticate_DistantEmbeddingFails(t *testing.T) {
	// Distance 0.625 exceeds the threshold; 0.625 is exactly representable
	// so the computed distance is exact.
	e, _, _ := registeredEngine(t, &stubExtractor{descriptor: descriptorWithFirst(0.625)})

	_, err := e.Authenticate(context.Background(), "a@x.com", PlainUpload(selfieJPEG(t)))

	assert.True(t, apperr.IsValidationFailed(err))
}

func TestAuthenticate_NoFaceIsValidationNotInternal(t *testing.T) {
	e, _, _ := registeredEngine(t, &stubExtractor{err: face.ErrNoFaceDetected})

	_, err := e.Authenticate(context.Background(), "a@x.com", PlainUpload(selfieJPEG(t)))

	assert.Equal(t, apperr.KindValidationFailed, apperr.KindOf(err))
}

func TestAuthenticate_EncryptedWithUserKey(t *testing.T) {
	e, c, _ := registeredEngine(t, &stubExtractor{descriptor: descriptorWithFirst(0)})

	payload := encryptSelfie(t, c, selfieJPEG(t), c.UserEncryptionKey(1, "a@x.com"))
	_, err := e.Authenticate(context.Background(), "a@x.com", EncryptedUpload(payload))

	assert.NoError(t, err)
}

func TestAuthenticate_EncryptedWithTempKeyFallback(t *testing.T) {
	e, c, _ := registeredEngine(t, &stubExtractor{descriptor: descriptorWithFirst(0)})

	payload := encryptSelfie(t, c, selfieJPEG(t), c.TempEncryptionKey("a@x.com"))
	_, err := e.Authenticate(context.Background(), "a@x.com", EncryptedUpload(payload))

	assert.NoError(t, err)
}

func TestAuthenticate_EncryptedWithUnknownKey(t *testing.T) {
	e, c, _ := registeredEngine(t, &stubExtractor{descriptor: descriptorWithFirst(0)})

	payload := encryptSelfie(t, c, selfieJPEG(t), "neither-key")
	_, err := e.Authenticate(context.Background(), "a@x.com", EncryptedUpload(payload))

	assert.True(t, apperr.IsValidationFailed(err))
}

func TestAuthenticate_TokenSigningFailureIsInternal(t *testing.T) {
	store := newStubStore()
	store.byEmail["a@x.com"] = &models.User{ID: 1, Email: "a@x.com", FaceDescriptor: descriptorWithFirst(0)}
	c := crypto.New("salt", "app-secret")
	opener := envelope.NewOpener(c, discardLogger())
	e, err := New(store, &stubExtractor{descriptor: descriptorWithFirst(0)}, c, opener,
		&stubIssuer{err: fmt.Errorf("hsm offline")}, discardLogger())
	require.NoError(t, err)

	_, err = e.Authenticate(context.Background(), "a@x.com", PlainUpload(selfieJPEG(t)))

	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestWithinThreshold_BoundaryIsInclusive(t *testing.T) {
	assert.True(t, withinThreshold(FaceMatchThreshold))
	assert.False(t, withinThreshold(math.Nextafter(FaceMatchThreshold, 1)))
	assert.True(t, withinThreshold(0))
}

func TestEuclideanDistance(t *testing.T) {
	a := make(face.Descriptor, face.DescriptorLen)
	b := make(face.Descriptor, face.DescriptorLen)
	assert.Equal(t, 0.0, EuclideanDistance(a, b))

	// 3-4-5 triangle across two coordinates.
	b[0], b[1] = 3, 4
	assert.InDelta(t, 5.0, EuclideanDistance(a, b), 1e-9)

	assert.True(t, math.IsInf(EuclideanDistance(a, b[:10]), 1))
}

func TestNew_RequiresCollaborators(t *testing.T) {
	c := crypto.New("salt", "secret")
	opener := envelope.NewOpener(c, discardLogger())

	_, err := New(nil, &stubExtractor{}, c, opener, &stubIssuer{}, discardLogger())
	assert.Error(t, err)

	_, err = New(newStubStore(), &stubExtractor{}, c, opener, nil, discardLogger())
	assert.Error(t, err)
}
