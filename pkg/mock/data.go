package mock

import (
	"math/rand"
	"strconv"
	"strings"
)

const (
	minValueLen = 8
	maxValueLen = 1024
)

// Entry is a pre-generated key/value pair for benchmarks and stress runs.
type Entry struct {
	Key   string
	Value []byte
}

// GenerateEntries builds num deterministic-ish keys with random payloads.
// Keys follow the "user:{n}:{section}:{m}" shape, the section cycling through
// profile, settings, session, cart and history, so the hasher sees realistic
// structured strings instead of raw integers.
func GenerateEntries(rnd *rand.Rand, num int) []Entry {
	list := make([]Entry, 0, num)

	i := 0
	for {
		for userID := 1; userID < 1000; userID++ {
			for _, section := range []string{"profile", "settings", "session", "cart", "history"} {
				if i >= num {
					return list
				}
				list = append(list, Entry{
					Key:   "user:" + strconv.Itoa(userID) + ":" + section + ":" + strconv.Itoa(i),
					Value: []byte(GenerateRandomString(rnd)),
				})
				i++
			}
		}
	}
}

func GenerateRandomString(rnd *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	length := rnd.Intn(maxValueLen-minValueLen+1) + minValueLen

	var sb strings.Builder
	sb.Grow(length)

	for i := 0; i < length; i++ {
		sb.WriteByte(letters[rnd.Intn(len(letters))])
	}

	return sb.String()
}
