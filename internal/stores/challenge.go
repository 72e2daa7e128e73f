package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	challengeRecordVersion1 = 1
)

var (
	ErrChallengeNotFound     = errors.New("challenge not found")
	ErrChallengeExpired      = errors.New("challenge expired")
	ErrChallengeExceeded     = errors.New("challenge attempts exceeded")
	ErrChallengeCodeMismatch = errors.New("challenge code mismatch")
	ErrChallengeBackend      = errors.New("challenge backend unavailable")
)

// Challenge is the persisted state of an OTP challenge. Only the SHA-256
// hash of the code is stored.
type Challenge struct {
	Kind      uint8
	Attempts  uint16
	ExpiresAt int64
	Consumed  bool
	UserID    string
	CodeHash  [32]byte
}

type ChallengeStore struct {
	redis  redis.UniversalClient
	prefix string
}

func NewChallengeStore(redisClient redis.UniversalClient, prefix string) *ChallengeStore {
	if prefix == "" {
		prefix = "ac"
	}
	return &ChallengeStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *ChallengeStore) key(challengeID string) string {
	return s.prefix + ":" + challengeID
}

func (s *ChallengeStore) Save(
	ctx context.Context,
	challengeID string,
	record *Challenge,
	ttl time.Duration,
) error {
	encoded, err := encodeChallenge(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(challengeID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return nil
}

func (s *ChallengeStore) Get(ctx context.Context, challengeID string) (*Challenge, error) {
	data, err := s.redis.Get(ctx, s.key(challengeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}

	record, err := decodeChallenge(data)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(challengeID)).Result()
		return nil, ErrChallengeExpired
	}
	return record, nil
}

func (s *ChallengeStore) Delete(ctx context.Context, challengeID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(challengeID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
	}
	return n > 0, nil
}

// Verify performs one verification attempt against the stored challenge.
// The whole attempt runs under an optimistic transaction so that
// concurrent attempts against the same challenge serialize: the attempt
// counter advances exactly once per attempt, and at most one attempt can
// consume the challenge.
//
// Every attempt advances the counter before the code is compared. Once
// the counter reaches maxAttempts the challenge is dead, and even a
// correct code returns ErrChallengeExceeded.
func (s *ChallengeStore) Verify(
	ctx context.Context,
	challengeID string,
	providedHash [32]byte,
	kind uint8,
	maxAttempts int,
) (*Challenge, error) {
	const maxRetries = 4
	key := s.key(challengeID)

	for i := 0; i < maxRetries; i++ {
		var record *Challenge
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err = decodeChallenge(data)
			if err != nil {
				return err
			}
			if record.Kind != kind {
				// a challenge issued for one purpose never verifies
				// under another
				return ErrChallengeNotFound
			}
			if time.Now().Unix() > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeExpired
			}
			if record.Consumed {
				if int(record.Attempts) >= maxAttempts {
					return ErrChallengeExceeded
				}
				return ErrChallengeNotFound
			}

			ttl := time.Until(time.Unix(record.ExpiresAt, 0))
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeExpired
			}

			record.Attempts++
			if int(record.Attempts) >= maxAttempts {
				record.Consumed = true
				updated, err := encodeChallenge(record)
				if err != nil {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Set(ctx, key, updated, ttl)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrChallengeExceeded
			}

			matched := subtle.ConstantTimeCompare(providedHash[:], record.CodeHash[:]) == 1
			if matched {
				record.Consumed = true
			}
			updated, err := encodeChallenge(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			if err != nil {
				return err
			}
			if !matched {
				return ErrChallengeCodeMismatch
			}
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil, ErrChallengeNotFound
			}
			if errors.Is(err, ErrChallengeNotFound) ||
				errors.Is(err, ErrChallengeExpired) ||
				errors.Is(err, ErrChallengeExceeded) ||
				errors.Is(err, ErrChallengeCodeMismatch) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrChallengeBackend, err)
		}
		return record, nil
	}

	return nil, ErrChallengeNotFound
}

func encodeChallenge(record *Challenge) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersion1)
	buf.WriteByte(record.Kind)

	if record.Consumed {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.UserID) > 65535 {
		return nil, errors.New("challenge user id length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.UserID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.UserID)

	buf.Write(record.CodeHash[:])

	return buf.Bytes(), nil
}

func decodeChallenge(data []byte) (*Challenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != challengeRecordVersion1 {
		return nil, errors.New("invalid challenge record version")
	}

	record := &Challenge{}
	if record.Kind, err = reader.ReadByte(); err != nil {
		return nil, err
	}

	consumed, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	record.Consumed = consumed == 1

	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var userLen uint16
	if err := binary.Read(reader, binary.BigEndian, &userLen); err != nil {
		return nil, err
	}
	user := make([]byte, userLen)
	if _, err := io.ReadFull(reader, user); err != nil {
		return nil, err
	}
	record.UserID = string(user)

	if _, err := io.ReadFull(reader, record.CodeHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
