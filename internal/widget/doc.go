// Package widget resolves dashboard widget descriptors into renderable units.
//
// A Registry maps each widget Type to an Entry holding its renderer, icon and
// grid footprint. The registry is built once at startup from the entries and
// the widget catalogue (built-in root widgets plus widgets declared by
// plugins); it refuses a catalogue naming an unknown type or repeating an id.
//
// Widget config is decoded per type into a Config variant. Data-source
// renderers (line-chart, key-value-list) carry a Template validated as an
// RFC 6570 URI template. Resolve binds the template to the widget's context:
//
//	r, err := registry.Resolve(desc, widget.Context{DeviceID: id, CapabilityType: "temperature"})
//	if err != nil {
//	    return err
//	}
//	view := r.View(width, height, widget.FrameOptions{})
//
// {deviceId} is substituted before {capabilityType}. A placeholder whose
// context value is empty is left in place. The bound path is then prefixed
// with the API origin the registry was built with.
package widget
