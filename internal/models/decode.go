package models

import (
	"encoding/json"
	"fmt"
)

// decode unmarshals a backend payload. A JSON null body is reported as an
// error because every endpoint returns an object.
func decode(kind string, data []byte, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return fmt.Errorf("decoding %s: empty payload", kind)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", kind, err)
	}
	return nil
}

// DecodeWorkspace maps a /v1/workspace payload.
func DecodeWorkspace(data []byte) (*Workspace, error) {
	var ws Workspace
	if err := decode("workspace", data, &ws); err != nil {
		return nil, err
	}
	return &ws, nil
}

// DecodeRepo maps a /v1/repo payload.
func DecodeRepo(data []byte) (*Repo, error) {
	var r Repo
	if err := decode("repo", data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DecodeLine maps a /v1/line payload. The line type must be known.
func DecodeLine(data []byte) (*Line, error) {
	var l Line
	if err := decode("line", data, &l); err != nil {
		return nil, err
	}
	if !l.Type.Valid() {
		return nil, fmt.Errorf("decoding line %s: unknown line type %q", l.Name, l.Type)
	}
	return &l, nil
}

// DecodeItemRows maps a /v1/line_item_table payload.
func DecodeItemRows(data []byte) ([]ItemRow, error) {
	var rows []ItemRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decoding item table: %w", err)
	}
	if rows == nil {
		rows = []ItemRow{}
	}
	return rows, nil
}

// DecodeModel maps a /v1/model payload.
func DecodeModel(data []byte) (*Model, error) {
	var m Model
	if err := decode("model", data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// DecodeDataset maps a /v1/dataset payload.
func DecodeDataset(data []byte) (*Dataset, error) {
	var d Dataset
	if err := decode("dataset", data, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// DecodeRunConfig maps a /v1/run_config payload.
func DecodeRunConfig(data []byte) (*RunConfig, error) {
	var c RunConfig
	if err := decode("run config", data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// DecodeRunLog maps a /v1/run_log payload.
func DecodeRunLog(data []byte) (*RunLog, error) {
	var l RunLog
	if err := decode("run log", data, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// DecodeVersion maps a /v1/version payload.
func DecodeVersion(data []byte) (*VersionInfo, error) {
	var v VersionInfo
	if err := decode("version", data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
