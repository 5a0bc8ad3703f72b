package main

import (
	"database/sql"
	"time"

	"FanController/sharedState"

	"github.com/golang/glog"

	_ "github.com/go-sql-driver/mysql"
)

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
	if _, err := db.Exec(`create table if not exists fan_log (
		logged timestamp default current_timestamp,
		temperature float null,
		duty_cycle int not null,
		pwm_mode varchar(16) not null,
		manual_mode boolean not null)`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// logFanHistory /*
// Mirror the published status into MySQL whenever the temperature or fan
// speed changes. Database trouble is never fatal: drop the connection, log
// it and try again next second.
func logFanHistory(store *sharedState.Store, stop <-chan struct{}) {
	var pDB *sql.DB
	var err error
	var last sharedState.Status
	first := true

	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-stop:
			if pDB != nil {
				_ = pDB.Close()
			}
			return
		case <-t.C:
		}

		if pDB == nil {
			pDB, err = connectToDatabase()
			if err != nil {
				glog.Errorf("Error opening the history database - %s", err)
				glog.Flush()
				pDB = nil
				continue
			}
		}

		st, err := store.ReadStatus()
		if err != nil {
			continue
		}
		if !first && st.DutyCycle == last.DutyCycle && sameTemp(st.Temperature, last.Temperature) {
			continue
		}
		if _, err := pDB.Exec("insert into fan_log (temperature, duty_cycle, pwm_mode, manual_mode) values (?, ?, ?, ?)",
			st.Temperature, st.DutyCycle, st.PwmMode, st.ManualMode); err != nil {
			glog.Errorf("Error writing fan values to the database - %s", err)
			glog.Flush()
			_ = pDB.Close()
			pDB = nil
			continue
		}
		last = st
		first = false
	}
}

func sameTemp(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
