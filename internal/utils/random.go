package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	letterBytes  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numberBytes  = "0123456789"
	alphanumeric = letterBytes + numberBytes
)

func GenerateRandomString(length int) string {
	return generateRandom(length, alphanumeric)
}

func GenerateRandomNumericString(length int) string {
	return generateRandom(length, numberBytes)
}

func generateRandom(length int, charset string) string {
	result := make([]byte, length)
	charsetLength := big.NewInt(int64(len(charset)))

	for i := range result {
		num, _ := rand.Int(rand.Reader, charsetLength)
		result[i] = charset[num.Int64()]
	}

	return string(result)
}

func SecureRandomInt(max int) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(max)))
	return int(n.Int64())
}

// GenerateOrderNumber produces a human-readable order number like
// KL-20260828-7H2K9Q. The random tail avoids confusable characters.
func GenerateOrderNumber() string {
	tail := strings.ToUpper(GenerateRandomString(6))
	tail = strings.ReplaceAll(tail, "0", "2")
	tail = strings.ReplaceAll(tail, "O", "3")
	tail = strings.ReplaceAll(tail, "I", "4")
	tail = strings.ReplaceAll(tail, "L", "5")

	return fmt.Sprintf("%s-%s-%s", OrderNumberPrefix, time.Now().Format("20060102"), tail)
}
