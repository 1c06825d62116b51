package common

import "os"

const serviceName = "jobflow"

func GetServiceName() string {
	return serviceName
}

// GetServiceInstance hostname is the pod name when deployed into kubernetes
func GetServiceInstance() string {
	hostname, err := os.Hostname()
	if err != nil {
		return serviceName + "-unknown"
	}
	return hostname
}
