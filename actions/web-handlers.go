package actions

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/scheduler"
)

type WebServerResponse uint32

const (
	Okay WebServerResponse = iota + 1
	Error
)

func (w WebServerResponse) MarshalJSON() ([]byte, error) {
	var retval string
	switch w {
	case Okay:
		retval = "ok"
	case Error:
		retval = "error"
	default:
		err := fmt.Errorf("unhandled WebServerResponse value in MarshalJSON() conversion")
		return nil, err
	}
	return json.Marshal(retval)
}

type ResponseSimple struct {
	ServerStatus WebServerResponse `json:"status"`
}

type ResponseRunList struct {
	Status WebServerResponse `json:"status"`
	Runs   []RunListItem     `json:"runs"`
}

type RunListItem struct {
	RunID     string              `json:"runId"`
	DagID     string              `json:"dagId"`
	RunStatus scheduler.RunStatus `json:"runStatus"`
}

type ResponseRunStatus struct {
	Status  WebServerResponse    `json:"status"`
	Message string               `json:"message"`
	Run     *scheduler.RunResult `json:"run,omitempty"`
}

type ResponseRunStop struct {
	Status  WebServerResponse `json:"status"`
	Message string            `json:"message"`
	RunID   string            `json:"runId"`
}

func GetHandlerHealth(log logger.Logger) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(log, w, http.StatusOK, ResponseSimple{ServerStatus: Okay})
	}
}

func GetHandlerStopServer(log logger.Logger, chanStop chan string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case chanStop <- "stop":
			log.Info("Stop signal sent")
		default: // a stop is already pending
		}
		respond(log, w, http.StatusOK, ResponseSimple{ServerStatus: Okay})
	}
}

func GetHandlerRunList(log logger.Logger, runs *scheduler.SafeMapRunInfo) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		keys := runs.Keys()
		items := make([]RunListItem, 0, len(keys))
		for _, id := range keys { // for each registered run...
			ri, ok := runs.Load(id)
			if !ok { // if it was removed since we fetched the keys...
				continue
			}
			items = append(items, RunListItem{RunID: id, DagID: ri.Result.DagID, RunStatus: ri.Result.Status})
		}
		respond(log, w, http.StatusOK, ResponseRunList{Status: Okay, Runs: items})
	}
}

func GetHandlerRunStatus(log logger.Logger, runs *scheduler.SafeMapRunInfo) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["runId"]
		ri, ok := runs.Load(id)
		if !ok { // if the run doesn't exist...
			log.Info("HTTP request for status of run ", id, " that doesn't exist.")
			respond(log, w, http.StatusNotFound, ResponseRunStatus{Status: Error, Message: fmt.Sprintf("run %v does not exist", id)})
			return
		}
		respond(log, w, http.StatusOK, ResponseRunStatus{Status: Okay, Run: &ri.Result})
	}
}

func GetHandlerRunStop(log logger.Logger, runs *scheduler.SafeMapRunInfo) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["runId"]
		ri, ok := runs.Load(id)
		if !ok { // if the run doesn't exist...
			respond(log, w, http.StatusNotFound, ResponseRunStop{Status: Error, Message: fmt.Sprintf("run %v does not exist", id), RunID: id})
			return
		}
		if ri.Result.IsFinished() {
			respond(log, w, http.StatusBadRequest, ResponseRunStop{Status: Error, Message: fmt.Sprintf("run %v is already finished", id), RunID: id})
			return
		}
		if ri.Cancel != nil {
			ri.Cancel()
		}
		log.Info("HTTP request stopped run ", id)
		respond(log, w, http.StatusOK, ResponseRunStop{Status: Okay, Message: "run stopping", RunID: id})
	}
}

// respond will marshal i to JSON and write it to w with the given status code.
func respond(log logger.Logger, w http.ResponseWriter, code int, i interface{}) {
	j, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		log.Error("unable to marshal HTTP response: ", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err = w.Write(j); err != nil {
		log.Error("unable to write HTTP response: ", err)
	}
}
