package errors

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrorDump flattens an error chain for structured logging, pulling out Mongo
// server details when present.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	MongoCode    int32    `json:"mongo_code,omitempty"`
	MongoName    string   `json:"mongo_name,omitempty"`
	MongoLabels  []string `json:"mongo_labels,omitempty"`
	MongoMessage string   `json:"mongo_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{
		TopMessage: err.Error(),
	}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		d.MongoCode = cmdErr.Code
		d.MongoName = cmdErr.Name
		d.MongoLabels = cmdErr.Labels
		d.MongoMessage = cmdErr.Message
		return d
	}

	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		d.MongoLabels = writeErr.Labels
		if len(writeErr.WriteErrors) > 0 {
			first := writeErr.WriteErrors[0]
			d.MongoCode = int32(first.Code)
			d.MongoMessage = first.Message
		}
		return d
	}

	return d
}

// IsDuplicateKey reports whether the error is a Mongo unique-index violation.
func IsDuplicateKey(err error) bool {
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if we.Code == 11000 {
				return true
			}
		}
	}
	return false
}
