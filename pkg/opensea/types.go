package opensea

// ContractResp GET /api/v2/chain/{chain}/contract/{address}
type ContractResp struct {
	Address    string `json:"address"`
	Chain      string `json:"chain"`
	Collection string `json:"collection"` // collection slug，可能为空
	Name       string `json:"name"`
}

// CollectionResp GET /api/v2/collections/{slug}
type CollectionResp struct {
	Collection string `json:"collection"`
	Name       string `json:"name"`
	Fees       []Fee  `json:"fees"`
}

type Fee struct {
	Fee       float64 `json:"fee"` // 百分比，2.5 表示 2.5%
	Recipient string  `json:"recipient"`
	Required  bool    `json:"required"`
}
