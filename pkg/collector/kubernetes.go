package collector

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/clustermind/k8s-resource-advisor/pkg/config"
	"github.com/clustermind/k8s-resource-advisor/pkg/models"
)

// KubernetesSource reads live usage from the API server and metrics-server.
// Requests come from pod specs, usage from the metrics API. A missing
// metrics-server degrades the snapshot to capacity and requests instead of
// failing the collection.
type KubernetesSource struct {
	clientset kubernetes.Interface
	metrics   metricsv.Interface
	namespace string // empty scans all namespaces
	analysis  *config.AnalysisConfig
	log       *zap.Logger

	now func() time.Time
}

// NewKubernetesSource connects using the given kubeconfig path, falling back
// to ~/.kube/config.
func NewKubernetesSource(kubeconfig, namespace string, analysis *config.AnalysisConfig, logger *zap.Logger) (*KubernetesSource, error) {
	if kubeconfig == "" {
		if home := homedir.HomeDir(); home != "" {
			kubeconfig = filepath.Join(home, ".kube", "config")
		}
	}

	restConfig, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	metricsClient, err := metricsv.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics client: %w", err)
	}

	return newKubernetesSource(clientset, metricsClient, namespace, analysis, logger), nil
}

func newKubernetesSource(clientset kubernetes.Interface, metrics metricsv.Interface, namespace string, analysis *config.AnalysisConfig, logger *zap.Logger) *KubernetesSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KubernetesSource{
		clientset: clientset,
		metrics:   metrics,
		namespace: namespace,
		analysis:  analysis,
		log:       logger,
		now:       time.Now,
	}
}

func (s *KubernetesSource) Name() string { return "kubernetes" }

// Clientset exposes the underlying client for callers needing direct API
// access, such as cloud provider detection.
func (s *KubernetesSource) Clientset() kubernetes.Interface { return s.clientset }

// Available checks API server connectivity.
func (s *KubernetesSource) Available(ctx context.Context) bool {
	_, err := s.clientset.Discovery().ServerVersion()
	return err == nil
}

// Snapshot reads nodes and pods into one point-in-time snapshot.
func (s *KubernetesSource) Snapshot(ctx context.Context, clusterID string) (*models.ClusterSnapshot, error) {
	snapshot := &models.ClusterSnapshot{
		ClusterID:   clusterID,
		CollectedAt: s.now().UTC(),
		Nodes:       map[string]models.NodeUsage{},
		Pods:        map[string]models.PodUsage{},
	}

	if err := s.collectNodes(ctx, snapshot); err != nil {
		return nil, err
	}
	if err := s.collectPods(ctx, snapshot); err != nil {
		return nil, err
	}
	s.aggregate(snapshot)
	snapshot.Business = businessContext(snapshot.Pods, s.now().Hour(), s.analysis)

	s.log.Info("snapshot collected",
		zap.String("cluster_id", clusterID),
		zap.String("source", s.Name()),
		zap.Int("nodes", len(snapshot.Nodes)),
		zap.Int("pods", len(snapshot.Pods)))

	return snapshot, nil
}

func (s *KubernetesSource) collectNodes(ctx context.Context, snapshot *models.ClusterSnapshot) error {
	nodes, err := s.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to list nodes: %w", err)
	}

	usage := map[string]corev1.ResourceList{}
	nodeMetrics, err := s.metrics.MetricsV1beta1().NodeMetricses().List(ctx, metav1.ListOptions{})
	if err != nil {
		s.log.Warn("node metrics unavailable", zap.Error(err))
	} else {
		for _, nm := range nodeMetrics.Items {
			usage[nm.Name] = nm.Usage
		}
	}

	for _, node := range nodes.Items {
		reading := models.NodeUsage{}

		allocatable := node.Status.Allocatable
		cpuCapacity := float64(allocatable.Cpu().MilliValue())
		memCapacity := float64(allocatable.Memory().Value())
		if cpuCapacity > 0 {
			reading.CPUCapacity = models.Float64(cpuCapacity)
		}
		if memCapacity > 0 {
			reading.MemoryCapacity = models.Float64(memCapacity)
		}

		if u, ok := usage[node.Name]; ok {
			cpuUsage := float64(u.Cpu().MilliValue())
			memUsage := float64(u.Memory().Value())
			reading.CPUUsage = models.Float64(cpuUsage)
			reading.MemoryUsage = models.Float64(memUsage)
			reading.CPUPercent = percentOf(cpuUsage, cpuCapacity)
			reading.MemoryPercent = percentOf(memUsage, memCapacity)
		}

		snapshot.Nodes[node.Name] = reading
	}
	return nil
}

func (s *KubernetesSource) collectPods(ctx context.Context, snapshot *models.ClusterSnapshot) error {
	pods, err := s.clientset.CoreV1().Pods(s.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return fmt.Errorf("failed to list pods: %w", err)
	}

	type podTotals struct{ cpu, memory float64 }
	usage := map[string]podTotals{}
	podMetrics, err := s.metrics.MetricsV1beta1().PodMetricses(s.namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		s.log.Warn("pod metrics unavailable", zap.Error(err))
	} else {
		for _, pm := range podMetrics.Items {
			var totals podTotals
			for _, container := range pm.Containers {
				cpu := container.Usage[corev1.ResourceCPU]
				memory := container.Usage[corev1.ResourceMemory]
				totals.cpu += float64(cpu.MilliValue())
				totals.memory += float64(memory.Value())
			}
			usage[pm.Namespace+"/"+pm.Name] = totals
		}
	}

	for _, pod := range pods.Items {
		if pod.Status.Phase != corev1.PodRunning {
			continue
		}

		reading := models.PodUsage{Namespace: pod.Namespace}

		var cpuRequest, memRequest float64
		for _, container := range pod.Spec.Containers {
			if cpu, ok := container.Resources.Requests[corev1.ResourceCPU]; ok {
				cpuRequest += float64(cpu.MilliValue())
			}
			if memory, ok := container.Resources.Requests[corev1.ResourceMemory]; ok {
				memRequest += float64(memory.Value())
			}
		}
		if cpuRequest > 0 {
			reading.CPURequest = models.Float64(cpuRequest)
		}
		if memRequest > 0 {
			reading.MemoryRequest = models.Float64(memRequest)
		}

		if totals, ok := usage[pod.Namespace+"/"+pod.Name]; ok {
			reading.CPUUsage = models.Float64(totals.cpu)
			reading.MemoryUsage = models.Float64(totals.memory)
			reading.CPUPercent = percentOf(totals.cpu, cpuRequest)
			reading.MemoryPercent = percentOf(totals.memory, memRequest)
		}

		reading.Activity = classifyActivity(
			floatValue(reading.CPUPercent), floatValue(reading.MemoryPercent), s.analysis)

		snapshot.Pods[pod.Name] = reading
	}
	return nil
}

func (s *KubernetesSource) aggregate(snapshot *models.ClusterSnapshot) {
	var cpuUsage, cpuCapacity, memUsage, memCapacity float64
	for _, node := range snapshot.Nodes {
		cpuUsage += floatValue(node.CPUUsage)
		memUsage += floatValue(node.MemoryUsage)
		cpuCapacity += floatValue(node.CPUCapacity)
		memCapacity += floatValue(node.MemoryCapacity)
	}

	snapshot.Cluster = &models.AggregateUsage{
		CPUUtilization:    percentOf(cpuUsage, cpuCapacity),
		MemoryUtilization: percentOf(memUsage, memCapacity),
		PodCount:          models.Float64(float64(len(snapshot.Pods))),
		NodeCount:         models.Float64(float64(len(snapshot.Nodes))),
	}
}

func floatValue(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
