package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"runtime"
)

type errorObj struct {
	Source string
	Err    string
}

type JSONError struct {
	Success bool        `json:"success"`
	Errors  []*errorObj `json:"errors"`
}

func (j *JSONError) AddErrorString(source string, err string) error {
	e := new(errorObj)
	e.Source = source
	e.Err = err
	j.Errors = append(j.Errors, e)
	return fmt.Errorf("Source : %s | error %s", source, err)
}

func (j *JSONError) AddError(source string, err error) error {
	e := new(errorObj)
	e.Source = source
	e.Err = err.Error()
	j.Errors = append(j.Errors, e)
	return err
}

func (j *JSONError) String() string {
	if s, err := json.Marshal(j); err != nil {
		log.Print(err)
		return ""
	} else {
		return string(s)
	}
}

func (j *JSONError) ReturnError(w http.ResponseWriter, retCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(retCode)
	_, err := fmt.Fprint(w, j.String())
	if err != nil {
		log.Println(err)
	}
}

func ReturnJSONError(w http.ResponseWriter, source string, err error, httpReturnCode int, bLog bool) {
	var jErr JSONError

	_ = jErr.AddError(source, err)
	jErr.Success = false
	jErr.ReturnError(w, httpReturnCode)
	if bLog {
		_, caller, line, _ := runtime.Caller(1)
		log.Printf("%s : %d : %v", caller, line, err)
	}
}

func ReturnJSONErrorString(w http.ResponseWriter, source string, errStr string, httpReturnCode int, bLog bool) {
	var jErr JSONError

	err := jErr.AddErrorString(source, errStr)
	jErr.Success = false
	jErr.ReturnError(w, httpReturnCode)
	if bLog {
		log.Print(err)
	}
}
