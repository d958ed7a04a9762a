package model

// Token is a fungible simulation asset.
type Token struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	Emoji       string `json:"emoji"`
	IsBaseToken bool   `json:"isBaseToken"`
}
