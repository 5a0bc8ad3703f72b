package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"FanController/sharedState"

	"github.com/golang/glog"
	"github.com/gorilla/mux"

	_ "github.com/go-sql-driver/mysql"
)

var (
	apiPort          uint
	stateDir         string
	webRoot          string
	databaseServer   string
	databasePort     string
	databaseName     string
	databaseLogin    string
	databasePassword string

	store *sharedState.Store
	pDB   *sql.DB
)

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, "usage: fanapi -stderrthreshold=[INFO|WARN|FATAL] -log_dir=[string]\n")
	flag.PrintDefaults()
	os.Exit(2)
}

func init() {
	flag.Usage = usage
	_ = flag.Set("log_dir", "/var/log")
	_ = flag.Set("stderrthreshold", "INFO")

	flag.UintVar(&apiPort, "i", 8088, "WEB port to listen on for API connections")
	flag.StringVar(&stateDir, "s", sharedState.DefaultDir, "Directory holding the status and config files")
	flag.StringVar(&webRoot, "r", "/var/www/fan-control", "Directory holding the WEB UI files")
	flag.StringVar(&databaseServer, "q", "", "MySQL server for the history endpoint (empty disables it)")
	flag.StringVar(&databaseName, "n", "logging", "Database name")
	flag.StringVar(&databaseLogin, "u", "logger", "Database login user name")
	flag.StringVar(&databasePassword, "w", "logger", "Database user password")
	flag.StringVar(&databasePort, "o", "3306", "Database port")
}

func connectToDatabase() (*sql.DB, error) {
	var sConnectionString = databaseLogin + ":" + databasePassword + "@tcp(" + databaseServer + ":" + databasePort + ")/" + databaseName

	db, err := sql.Open("mysql", sConnectionString)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func setUpWebSite() {
	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/api/status", getStatus).Methods("GET")
	router.HandleFunc("/api/config", getConfig).Methods("GET")
	router.HandleFunc("/api/config", setConfig).Methods("POST")
	router.HandleFunc("/api/config", corsPreflight).Methods("OPTIONS")
	router.HandleFunc("/api/history", getHistory).Methods("GET")

	fileServer := http.FileServer(neuteredFileSystem{http.Dir(webRoot)})
	router.PathPrefix("/").Handler(http.StripPrefix("/", fileServer))

	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", apiPort), router))
}

func sendJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println(err)
	}
}

func corsPreflight(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.WriteHeader(http.StatusOK)
}

// getStatus /*
// Return the last status the control loop published. If the status file
// cannot be read we still answer so the dashboard can show the outage.
func getStatus(w http.ResponseWriter, _ *http.Request) {
	st, err := store.ReadStatus()
	if err != nil {
		st = sharedState.Status{
			PwmMode: "unknown",
			Error:   "Status not available: " + err.Error(),
		}
	}
	sendJSON(w, st)
}

func getConfig(w http.ResponseWriter, _ *http.Request) {
	cfg, err := store.ReadConfig()
	if err != nil {
		ReturnJSONError(w, "config", err, http.StatusInternalServerError, true)
		return
	}
	w.Header().Set("Cache-Control", "no-cache")
	sendJSON(w, cfg)
}

// setConfig validates and stores a manual override request. The control
// loop picks it up on its next cycle, not instantly.
func setConfig(w http.ResponseWriter, r *http.Request) {
	var cfg sharedState.ConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		ReturnJSONError(w, "config", err, http.StatusBadRequest, false)
		return
	}
	if cfg.ManualDutyCycle < 0 || cfg.ManualDutyCycle > 100 {
		ReturnJSONErrorString(w, "config", "Duty cycle must be between 0 and 100", http.StatusBadRequest, false)
		return
	}
	if err := store.WriteConfig(cfg); err != nil {
		ReturnJSONError(w, "config", err, http.StatusInternalServerError, true)
		return
	}
	sendJSON(w, struct {
		Success bool                      `json:"success"`
		Config  sharedState.ConfigRequest `json:"config"`
	}{true, cfg})
}

func getHistory(w http.ResponseWriter, _ *http.Request) {
	if pDB == nil {
		ReturnJSONErrorString(w, "history", "History database is not configured", http.StatusServiceUnavailable, false)
		return
	}
	rows, err := pDB.Query("select logged, temperature, duty_cycle, pwm_mode, manual_mode from fan_log order by logged desc limit 50")
	if err != nil {
		ReturnJSONError(w, "history", err, http.StatusInternalServerError, true)
		return
	}
	defer func() {
		_ = rows.Close()
	}()

	type histRow struct {
		Logged      string   `json:"logged"`
		Temperature *float64 `json:"temperature"`
		DutyCycle   int      `json:"duty_cycle"`
		PwmMode     string   `json:"pwm_mode"`
		ManualMode  bool     `json:"manual_mode"`
	}
	var hist []histRow
	for rows.Next() {
		var h histRow
		if err := rows.Scan(&h.Logged, &h.Temperature, &h.DutyCycle, &h.PwmMode, &h.ManualMode); err != nil {
			ReturnJSONError(w, "history", err, http.StatusInternalServerError, true)
			return
		}
		hist = append(hist, h)
	}
	sendJSON(w, struct {
		History []histRow `json:"history"`
	}{hist})
}

// neuteredFileSystem serves the UI files without offering directory
// listings for folders that have no index.html.
type neuteredFileSystem struct {
	fs http.FileSystem
}

func (nfs neuteredFileSystem) Open(path string) (http.File, error) {
	f, err := nfs.fs.Open(path)
	if err != nil {
		return nil, err
	}

	s, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if s.IsDir() {
		index := filepath.Join(path, "index.html")
		if _, err := nfs.fs.Open(index); err != nil {
			closeErr := f.Close()
			if closeErr != nil {
				return nil, closeErr
			}

			return nil, err
		}
	}

	return f, nil
}

func main() {
	flag.Parse()
	defer glog.Flush()

	store = sharedState.New(stateDir)

	if databaseServer != "" {
		var err error
		pDB, err = connectToDatabase()
		if err != nil {
			glog.Errorf("Failed to connect to the history database - %s - the history endpoint is disabled", err)
			pDB = nil
		}
	}

	glog.Infof("Fan control API listening on port %d", apiPort)
	glog.Flush()
	setUpWebSite()
}
