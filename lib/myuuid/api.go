package myuuid

import "github.com/google/uuid"

//go:generate mockgen -source=api.go -package myuuid -destination uuider_mock.go UUIDer
type UUIDer interface {
	Create() string
}

type RealUUIDer struct{}

func (u RealUUIDer) Create() string {
	return uuid.New().String()
}

var namespace = uuid.MustParse("8c1f5f6e-3f0a-4d47-9a55-2b1f4a7e9d10")

// FromKey derives a stable uid from an externally supplied key: the same key always yields the same uid
func FromKey(key string) string {
	return uuid.NewSHA1(namespace, []byte(key)).String()
}
