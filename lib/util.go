package lib

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"regexp"
)

var re1 = regexp.MustCompile("[^a-zA-Z]+")

func Exists(path string) bool {
	if _, err := os.Stat(path); err == nil {
		return true
	} else if os.IsNotExist(err) {
		return false
	}

	return true
}

/*
	return an encoded object as bytes
*/
func Marshal(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	err := gob.NewEncoder(b).Encode(v)
	if err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

/*
	return a decoded object from bytes
*/
func Unmarshal(data []byte, v interface{}) error {
	b := bytes.NewBuffer(data)
	return gob.NewDecoder(b).Decode(v)
}

func Normalize(path string) (string, error) {
	return filepath.Abs(filepath.Clean(path))
}

/*
	The designator prefix is the alphabetic part of a reference: R for
	R10, C for C3. Association keys are built from it.
*/
func DesignatorPrefix(reference string) string {
	return re1.ReplaceAllString(reference, "")
}

func assocKey(prefix, value, footprint string) []byte {
	key, _ := Marshal([]string{prefix, value, footprint})

	return key
}
