package tokenizer

func testConfig() *Config {
	return &Config{
		Vocab: map[string]int{
			"[PAD]": 0,
			"he":    5,
			"llo":   6,
			"wo":    7,
			"rld":   8,
			"cafe":  9,
			"東京":    10,
			"Ab":    11,
			"the":   12,
		},
		PadTokenID: 0,
	}
}
