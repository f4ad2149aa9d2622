package protocol

import "encoding/json"

// ShardTotals is shard -> resource -> amount on the wire.
type ShardTotals = map[string]map[string]int64

// ResResponse is the body of GET /res. A successful response always carries data,
// even when no shard matched.
type ResResponse struct {
	Success bool        `json:"success"`
	Data    ShardTotals `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func (r ResResponse) MarshalJSON() ([]byte, error) {
	type plain ResResponse
	return json.Marshal(struct {
		plain
		Data *ShardTotals `json:"data,omitempty"`
	}{plain: plain(r), Data: dataField(r.Success, r.Data)})
}

// RES_QUERY (client -> server)
type ResQueryMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	ID              string `json:"id,omitempty"`
	Username        string `json:"username"`
	Shard           string `json:"shard"`
}

// RES_RESULT (server -> client)
type ResResultMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	ID              string      `json:"id"`
	Success         bool        `json:"success"`
	Data            ShardTotals `json:"data,omitempty"`
	Error           string      `json:"error,omitempty"`
	Code            string      `json:"code,omitempty"`
}

func (m ResResultMsg) MarshalJSON() ([]byte, error) {
	type plain ResResultMsg
	return json.Marshal(struct {
		plain
		Data *ShardTotals `json:"data,omitempty"`
	}{plain: plain(m), Data: dataField(m.Success, m.Data)})
}

// dataField emits {} for an empty successful result and drops data on failure.
func dataField(success bool, data ShardTotals) *ShardTotals {
	if !success {
		return nil
	}
	if data == nil {
		data = ShardTotals{}
	}
	return &data
}
