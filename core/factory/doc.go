// Package factory maps type names from configuration to constructors.
//
// A section such as
//
//	decision_log:
//	  backend: sqlite
//
// or a list of metrics sinks resolves to a ModuleConfig whose Conf map is
// decoded by the constructor registered under Type:
//
//	reg := factory.NewRegistry[metrics.MetricsSink]()
//	_ = reg.Register("prometheus", func(conf map[string]any) (metrics.MetricsSink, error) {
//		var c struct {
//			Namespace string `json:"namespace"`
//		}
//		if err := factory.Decode(conf, &c); err != nil {
//			return nil, err
//		}
//		return newPromSink(c.Namespace)
//	})
//	sink, err := reg.Create(factory.ModuleConfig{Type: "prometheus"})
package factory
