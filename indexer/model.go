package indexer

// sqlite models

type Height struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	Height uint64 `json:"height"`
}

// Amounts are decimal strings; sqlite has no 256 bit integer.

type Member struct {
	Address    string `gorm:"primary_key" json:"address"`
	MemberType uint8  `json:"member_type"`
	Height     uint64 `json:"height"`
	TxHash     string `json:"tx_hash"`
}

// Proposal ids start at zero, so the chain id is kept apart from the row key.
type Proposal struct {
	Id             uint64 `gorm:"primary_key" json:"-"`
	ProposalId     uint64 `gorm:"unique_index" json:"id"`
	Proposer       string `gorm:"index" json:"proposer"`
	Description    string `json:"description"`
	Actions        string `gorm:"type:text" json:"actions"`
	StartTime      uint64 `json:"start_time"`
	EndTime        uint64 `json:"end_time"`
	ForVotes       uint64 `json:"for_votes"`
	AgainstVotes   uint64 `json:"against_votes"`
	Executed       bool   `json:"executed"`
	CreateHeight   uint64 `json:"create_height"`
	ExecutedHeight uint64 `json:"executed_height"`
}

type Vote struct {
	Id       uint64 `gorm:"primary_key" json:"id"`
	Proposal uint64 `gorm:"index" json:"proposal"`
	Voter    string `gorm:"index" json:"voter"`
	Support  bool   `json:"support"`
	Weight   uint64 `json:"weight"`
	Height   uint64 `json:"height"`
}

type Payment struct {
	Id     uint64 `gorm:"primary_key" json:"id"`
	From   string `gorm:"column:payer;index" json:"from"`
	Amount string `json:"amount"`
	Height uint64 `json:"height"`
	TxHash string `json:"tx_hash"`
}

type Distribution struct {
	Id         uint64 `gorm:"primary_key" json:"id"`
	Consultant string `gorm:"index" json:"consultant"`
	WorkUnits  string `json:"work_units"`
	Rate       string `json:"rate"`
	Payout     string `json:"payout"`
	Height     uint64 `json:"height"`
	TxHash     string `json:"tx_hash"`
}

type Consultant struct {
	Address string `gorm:"primary_key" json:"address"`
	Rate    string `json:"rate"`
	Height  uint64 `json:"height"`
}

// ParamChange records entry fee, percentage and ownership updates.
type ParamChange struct {
	Id       uint64 `gorm:"primary_key" json:"id"`
	Kind     string `gorm:"index" json:"kind"`
	Contract string `json:"contract"`
	Old      string `json:"old"`
	New      string `json:"new"`
	Height   uint64 `json:"height"`
}
