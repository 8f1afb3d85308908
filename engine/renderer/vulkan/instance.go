package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/gravity/engine/core"
)

// safeString null-terminates s for the C side of the binding.
func safeString(s string) string {
	if len(s) == 0 {
		return "\x00"
	}
	if s[len(s)-1] != '\x00' {
		return s + "\x00"
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// requiredInstanceLayers maps layer name to whether it is mandatory.
func (d *Driver) requiredInstanceLayers() map[string]bool {
	layers := map[string]bool{}
	if d.options.EnableValidation {
		layers[validationLayerName] = false
	}
	return layers
}

// requiredInstanceExtensions includes whatever the window system demands
// plus the debug reporting extension when validation is on.
func (d *Driver) requiredInstanceExtensions() map[string]bool {
	extensions := map[string]bool{}
	for _, name := range d.window.RequiredInstanceExtensions() {
		extensions[name] = true
	}
	extensions["VK_KHR_get_physical_device_properties2"] = false
	if d.options.EnableValidation {
		extensions["VK_EXT_debug_report"] = false
	}
	return extensions
}

func (d *Driver) initializeInstance() error {
	var apiVersion uint32
	if res := vk.EnumerateInstanceVersion(&apiVersion); res != vk.Success {
		apiVersion = vk.ApiVersion10
	}
	if apiVersion < vk.MakeVersion(1, 3, 0) {
		core.LogError("platform does not support vulkan 1.3 and up")
		return core.Internalf("vulkan 1.3 required, loader reports %d.%d",
			(apiVersion>>22)&0x7F, (apiVersion>>12)&0x3FF)
	}

	// filter requested layers against availability
	var layerCount uint32
	vk.EnumerateInstanceLayerProperties(&layerCount, nil)
	availableLayers := make([]vk.LayerProperties, layerCount)
	vk.EnumerateInstanceLayerProperties(&layerCount, availableLayers)

	availableLayerNames := map[string]bool{}
	for i := range availableLayers {
		availableLayers[i].Deref()
		availableLayerNames[vk.ToString(availableLayers[i].LayerName[:])] = true
	}

	for name, required := range d.requiredInstanceLayers() {
		if !availableLayerNames[name] {
			if required {
				core.LogError("required vulkan layer (%s) is not supported", name)
				return core.Internalf("missing required layer %s", name)
			}
			core.LogWarn("failed to enable a requested vulkan layer (%s)", name)
			continue
		}
		d.enabledInstanceLayers = append(d.enabledInstanceLayers, name)
	}

	// filter requested extensions against availability
	var extensionCount uint32
	vk.EnumerateInstanceExtensionProperties("", &extensionCount, nil)
	availableExtensions := make([]vk.ExtensionProperties, extensionCount)
	vk.EnumerateInstanceExtensionProperties("", &extensionCount, availableExtensions)

	availableExtensionNames := map[string]bool{}
	for i := range availableExtensions {
		availableExtensions[i].Deref()
		availableExtensionNames[vk.ToString(availableExtensions[i].ExtensionName[:])] = true
	}

	var enabledExtensions []string
	for name, required := range d.requiredInstanceExtensions() {
		if !availableExtensionNames[name] {
			if required {
				core.LogError("required vulkan extension (%s) is not supported", name)
				return core.Internalf("missing required extension %s", name)
			}
			core.LogWarn("failed to enable a requested vulkan extension (%s)", name)
			continue
		}
		d.enabledInstanceExtensions[name] = true
		enabledExtensions = append(enabledExtensions, name)
	}

	applicationInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   safeString(d.options.ApplicationName),
		ApplicationVersion: d.options.ApplicationVersion,
		PEngineName:        safeString("Gravity Engine"),
		EngineVersion:      vk.MakeVersion(0, 1, 0),
		ApiVersion:         vk.MakeVersion(1, 3, 0),
	}

	instanceCreateInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &applicationInfo,
		EnabledLayerCount:       uint32(len(d.enabledInstanceLayers)),
		PpEnabledLayerNames:     safeStrings(d.enabledInstanceLayers),
		EnabledExtensionCount:   uint32(len(enabledExtensions)),
		PpEnabledExtensionNames: safeStrings(enabledExtensions),
	}

	var instance vk.Instance
	if res := vk.CreateInstance(&instanceCreateInfo, nil, &instance); res != vk.Success {
		core.LogError("unable to create vulkan instance: %s", resultString(res))
		return core.Internalf("vkCreateInstance failed: %s", resultString(res))
	}
	d.instance = instance
	vk.InitInstance(instance)

	if d.options.EnableValidation && d.enabledInstanceExtensions["VK_EXT_debug_report"] {
		if err := d.initializeDebugCallback(); err != nil {
			core.LogWarn("debug callback unavailable: %v", err)
		}
	}

	return nil
}

func (d *Driver) initializeSurface() error {
	surface, err := d.window.CreateSurface(d.instance)
	if err != nil {
		core.LogError("unable to create vulkan window surface")
		return err
	}
	d.surface = surface
	return nil
}

func (d *Driver) initializeDebugCallback() error {
	createInfo := vk.DebugReportCallbackCreateInfo{
		SType: vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags: vk.DebugReportFlags(vk.DebugReportInformationBit |
			vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit |
			vk.DebugReportErrorBit | vk.DebugReportDebugBit),
		PfnCallback: debugReportCallback,
	}

	var callback vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(d.instance, &createInfo, nil, &callback); res != vk.Success {
		return core.Internalf("vkCreateDebugReportCallbackEXT failed: %s", resultString(res))
	}
	d.debugCallback = callback
	return nil
}

// debugReportCallback routes driver diagnostics into the engine logger at
// the matching severity, with the offending object identified.
func debugReportCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, layerPrefix string,
	message string, _ unsafe.Pointer) vk.Bool32 {

	formatted := "[%s] code %d, object_type: %d, object: %#x, location: %d\n\t%s"

	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError(formatted, layerPrefix, messageCode, objectType, object, location, message)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0,
		flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn(formatted, layerPrefix, messageCode, objectType, object, location, message)
	case flags&vk.DebugReportFlags(vk.DebugReportInformationBit) != 0:
		core.LogInfo(formatted, layerPrefix, messageCode, objectType, object, location, message)
	default:
		core.LogTrace(formatted, layerPrefix, messageCode, objectType, object, location, message)
	}

	return vk.False
}
