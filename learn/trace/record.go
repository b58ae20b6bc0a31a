package trace

// StepRecord captures a single policy decision, the state it was taken in,
// and its measured consequence.
type StepRecord struct {
	Episode      int     `yaml:"episode"`
	Step         int     `yaml:"step"`
	Clients      int     `yaml:"clients"`
	Handshake    bool    `yaml:"handshake"`
	OfflineSteps int     `yaml:"offline_steps"`
	ComboID      int     `yaml:"combo_id"`
	Combo        string  `yaml:"combo"`
	Decision     string  `yaml:"decision"` // explore, cold-start or exploit
	Epsilon      float64 `yaml:"epsilon"`
	Measured     int     `yaml:"measured"`
	Effective    int     `yaml:"effective"`
	Performance  float64 `yaml:"performance"`
	Reward       float64 `yaml:"reward"`
	Predicted    int     `yaml:"predicted"`
	QValue       float64 `yaml:"q_value"`

	NextClients      int `yaml:"next_clients"`
	NextOfflineSteps int `yaml:"next_offline_steps"`
}

// EpisodeRecord captures the metrics reported at an episode boundary.
type EpisodeRecord struct {
	Episode   int     `yaml:"episode"`
	Accuracy  float64 `yaml:"accuracy"`
	Precision float64 `yaml:"precision"`
	Recall    float64 `yaml:"recall"`
	F1        float64 `yaml:"f1"`
	Epsilon   float64 `yaml:"epsilon"`
}
