package handlers

import (
	"log"
	"net/http"

	"ecoquest/internal/logging"
	"ecoquest/internal/notify"
)

func respondWithError(w http.ResponseWriter, status int, userMsg, logMsg string, err error) {
	if err != nil {
		if logMsg == "" {
			logMsg = userMsg
		}
		log.Printf("%s: %v", logMsg, err)
	}

	http.Error(w, userMsg, status)
}

// noticeFor maps err to the notice shown to the user and logs anything
// outside the known error taxonomy
func noticeFor(logger logging.Logger, op string, err error) notify.Notice {
	if !notify.Expected(err) {
		logger.Error("Error "+op, err)
	}
	return notify.FromError(err)
}
