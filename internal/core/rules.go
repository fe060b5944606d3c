package core

// NewDefaultRulesEngine builds a rules engine with the built-in policy set.
// The rules re-validate the post-transaction state, backstopping the
// service-level guards against any write path that bypasses them.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(LocationTreeRule())
	engine.Register(AssetReferenceRule())
	engine.Register(HistoryReferenceRule())
	return engine
}
