package export

import (
	"testing"
)

func TestMongoDoc(t *testing.T) {
	recs := testRecords()

	doc := mongoDoc(&recs[0])
	if doc["username"] != "OASIS_MSG" {
		t.Errorf("username = %v", doc["username"])
	}
	if doc["exec_id"] != int64(257809109) {
		t.Errorf("exec_id = %v, want 257809109", doc["exec_id"])
	}

	doc = mongoDoc(&recs[1])
	if _, ok := doc["exec_time_ms"]; ok {
		t.Error("record without indicators should omit exec_time_ms")
	}
	if doc["sql"] != "[SEL] select 达梦 from dual" {
		t.Errorf("sql = %v", doc["sql"])
	}
}

func TestStreamValues(t *testing.T) {
	recs := testRecords()

	values := streamValues(&recs[0])
	if values["exec_time_ms"] != "3" {
		t.Errorf("exec_time_ms = %v, want \"3\"", values["exec_time_ms"])
	}
	if values["row_count"] != "1" {
		t.Errorf("row_count = %v, want \"1\"", values["row_count"])
	}

	values = streamValues(&recs[1])
	if _, ok := values["exec_id"]; ok {
		t.Error("record without indicators should omit exec_id")
	}
	if values["appname"] != "disql" {
		t.Errorf("appname = %v, want disql", values["appname"])
	}
}
